// Package tls serves the gateway over HTTPS with certificates that can be
// rotated without a restart.
//
// NewServerConfig builds a crypto/tls configuration whose certificate comes
// from a CertificateReloader. The reloader polls the certificate and key
// files and swaps in a new pair when either file's modification time moves
// forward. A pair that fails to load or has expired is logged and ignored;
// the previous certificate keeps serving.
//
//	reloader := tls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval, logger)
//	if err := reloader.Start(ctx); err != nil {
//	    return err
//	}
//	tlsConfig, err := tls.NewServerConfig(cfg, reloader)
//	if err != nil {
//	    return err
//	}
//	ln = cryptotls.NewListener(ln, tlsConfig)
package tls
