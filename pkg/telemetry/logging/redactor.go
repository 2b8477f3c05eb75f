package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Pattern names.
const (
	PatternAnthropicKey = "anthropic_key"
	PatternOpenAIKey    = "openai_key"
	PatternXAIKey       = "xai_key"
	PatternGoogleKey    = "google_key"
	PatternBearerToken  = "bearer_token"
	PatternJWT          = "jwt"
	PatternEmail        = "email"
)

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Patterns are applied in order; the Anthropic key must run before the
// generic sk- key and bearer tokens before bare JWTs.
var defaultPatterns = []redactPattern{
	{PatternAnthropicKey, regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_\-]+`), "sk-ant-***"},
	{PatternOpenAIKey, regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{6,}`), "sk-***"},
	{PatternXAIKey, regexp.MustCompile(`\bxai-[A-Za-z0-9_\-]{4,}`), "xai-***"},
	{PatternGoogleKey, regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{6,}`), "AIza***"},
	{PatternBearerToken, regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`), "Bearer ***"},
	{PatternJWT, regexp.MustCompile(`eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]*`), "eyJ***"},
	{PatternEmail, regexp.MustCompile(`([a-zA-Z0-9._%+\-])[a-zA-Z0-9._%+\-]*@([a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`), "$1***@$2"},
}

// sensitiveKeys are attribute keys whose value is masked whatever it holds.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"authorization": true,
	"private_key":   true,
}

// Redactor masks provider credentials, bearer tokens, JWTs and email
// addresses in log attributes.
type Redactor struct {
	patterns []redactPattern
}

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: defaultPatterns}
}

// RedactString redacts every pattern match in value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr returns a copy of a with sensitive content masked. Groups are
// walked recursively and error values are rendered then redacted.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if r == nil {
		return a
	}
	v := a.Value.Resolve()

	if isSensitiveKey(a.Key) && v.Kind() != slog.KindGroup {
		return slog.String(a.Key, maskValue(v.String()))
	}

	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindGroup:
		group := v.Group()
		out := make([]any, len(group))
		for i, ga := range group {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, out...)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// isSensitiveKey checks if a key name indicates a secret.
func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if sensitiveKeys[k] {
		return true
	}
	return strings.HasSuffix(k, "_token") ||
		strings.HasSuffix(k, "_secret") ||
		strings.HasSuffix(k, "_api_key") ||
		strings.HasSuffix(k, "_password")
}

// maskValue keeps a short prefix for debugging.
func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "***"
	}
	return v[:4] + "***"
}

// RedactAPIKey redacts an API key, keeping only a prefix.
func RedactAPIKey(apiKey string) string {
	if len(apiKey) <= 4 {
		return "***"
	}
	return apiKey[:4] + "***"
}
