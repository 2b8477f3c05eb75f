package main

import (
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/parley/pkg/cli"
	parleytls "mercator-hq/parley/pkg/security/tls"
)

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Manage TLS certificates",
	Long: `Manage the certificate pair used when server.tls.enabled is set.

Subcommands:
  generate - Generate a self-signed certificate for development
  check    - Check that a certificate and key load and are in date

Examples:
  parley certs generate --host "localhost,127.0.0.1"
  parley certs check --cert certs/cert.pem --key certs/key.pem`,
}

var generateFlags struct {
	hosts    string
	org      string
	validity int
	keySize  int
	output   string
}

var certsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a self-signed certificate",
	Long: `Generate a self-signed certificate and private key into the output
directory as cert.pem and key.pem. The key is written with mode 0600.

Self-signed certificates are for development only.

Examples:
  parley certs generate --host localhost
  parley certs generate --host "localhost,127.0.0.1,chat.local" --validity 30 --output certs/`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateFlags.validity <= 0 {
			return cli.NewConfigError("validity", "must be at least one day")
		}
		opts := parleytls.SelfSignedOptions{
			Hosts:        strings.Split(generateFlags.hosts, ","),
			Organization: generateFlags.org,
			ValidFor:     time.Duration(generateFlags.validity) * 24 * time.Hour,
			KeySize:      generateFlags.keySize,
		}
		return generateCertificate(opts, generateFlags.output, cmd.OutOrStdout())
	},
}

var checkFlags struct {
	cert string
	key  string
}

var certsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a certificate and key pair",
	Long: `Load a certificate and key the way the server does and report the
subject, names and remaining validity. Exits non-zero if the pair does not
match or the certificate is outside its validity window.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkCertificate(checkFlags.cert, checkFlags.key, time.Now(), cmd.OutOrStdout())
	},
}

func init() {
	certsGenerateCmd.Flags().StringVar(&generateFlags.hosts, "host", "localhost", "comma-separated hostnames and IPs")
	certsGenerateCmd.Flags().StringVar(&generateFlags.org, "org", "Parley", "organization name")
	certsGenerateCmd.Flags().IntVar(&generateFlags.validity, "validity", 365, "validity in days")
	certsGenerateCmd.Flags().IntVar(&generateFlags.keySize, "key-size", 2048, "RSA key size (2048, 3072, 4096)")
	certsGenerateCmd.Flags().StringVarP(&generateFlags.output, "output", "o", "certs", "output directory")

	certsCheckCmd.Flags().StringVar(&checkFlags.cert, "cert", "", "certificate file (required)")
	certsCheckCmd.Flags().StringVar(&checkFlags.key, "key", "", "private key file (required)")
	_ = certsCheckCmd.MarkFlagRequired("cert")
	_ = certsCheckCmd.MarkFlagRequired("key")

	certsCmd.AddCommand(certsGenerateCmd, certsCheckCmd)
	rootCmd.AddCommand(certsCmd)
}

func generateCertificate(opts parleytls.SelfSignedOptions, dir string, out io.Writer) error {
	certPEM, keyPEM, err := parleytls.GenerateSelfSigned(opts)
	if err != nil {
		return err
	}
	certPath, keyPath, err := parleytls.WriteKeyPair(dir, certPEM, keyPEM)
	if err != nil {
		return err
	}

	status := cli.NewStatus(out)
	status.Success("Certificate: %s", certPath)
	status.Success("Private key: %s", keyPath)
	status.Warn("Self-signed certificates are for development only")
	return nil
}

func checkCertificate(certFile, keyFile string, now time.Time, out io.Writer) error {
	pair, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate pair: %w", err)
	}
	leaf, err := parleytls.ValidateCertificate(&pair, now)
	if err != nil {
		return err
	}

	status := cli.NewStatus(out)
	status.Success("Subject: %s", leaf.Subject.CommonName)

	names := append([]string{}, leaf.DNSNames...)
	for _, ip := range leaf.IPAddresses {
		names = append(names, ip.String())
	}
	if len(names) > 0 {
		status.Println("Names: %s", strings.Join(names, ", "))
	}

	days, soon := parleytls.DaysUntilExpiry(leaf, now)
	if soon {
		status.Warn("Expires in %d days (%s)", days, leaf.NotAfter.Format("2006-01-02"))
	} else {
		status.Success("Valid for %d more days", days)
	}
	return nil
}
