package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces sensitive values in log output.
const MaskValue = "***REDACTED***"

// sensitiveKeys lists attribute keys whose values are always masked.
// The control-port session handles two secrets, the authentication
// cookie and the hidden-service private key, and both have several
// plausible spellings.
var sensitiveKeys = map[string]bool{
	"cookie":       true,
	"auth_cookie":  true,
	"private_key":  true,
	"privatekey":   true,
	"key_blob":     true,
	"provided_key": true,
	"secret":       true,
	"password":     true,
	"credential":   true,
}

// sensitivePatterns matches values that carry key or cookie material
// regardless of the attribute key they were logged under.
var sensitivePatterns = []*regexp.Regexp{
	// ADD_ONION key blobs, both the request and the reply form.
	regexp.MustCompile(`^ED25519-V3:`),
	regexp.MustCompile(`PrivateKey=`),

	// A full AUTHENTICATE command line contains the hex cookie.
	regexp.MustCompile(`(?i)^AUTHENTICATE\s+[0-9A-F]+`),

	// PEM private key markers.
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),

	// Tor's on-disk v3 secret key header.
	regexp.MustCompile(`== ed25519v1-secret:`),
}

// SecureHandler wraps an slog.Handler and masks secret-bearing
// attributes before the record reaches it.
//
// Design decision: a handler wrapper rather than a custom logger. It
// composes with any underlying handler (text or JSON), and every
// component that accepts a *slog.Logger gets redaction for free
// without knowing it exists.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler with redaction. A nil handler falls
// back to slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle rebuilds the record with masked attributes and forwards it.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.maskAttr(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

// WithAttrs masks the attributes before adding them.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		maskedAttrs[i] = h.maskAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(maskedAttrs)}
}

// WithGroup returns a handler scoped to the given group.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// maskAttr masks a single attribute, descending into groups.
func (h *SecureHandler) maskAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		maskedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			maskedAttrs[i] = h.maskAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(maskedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	if sensitiveKeys[keyLower] || containsSensitiveKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString && isSensitiveValue(a.Value.String()) {
		return slog.String(a.Key, MaskValue)
	}

	return a
}

// containsSensitiveKeyword catches composite keys like
// "service_private_key". The bare word "key" is deliberately not on
// the list: it hits too many innocent keys ("hotkey", "primary_key"),
// and the specific spellings live in sensitiveKeys.
func containsSensitiveKeyword(key string) bool {
	keywords := []string{"cookie", "secret", "private", "password", "credential"}
	for _, keyword := range keywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue reports whether a value matches a secret pattern.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// NewSecureLogger returns a text logger writing to w with redaction
// applied. Verbose lowers the level from Info to Debug, which adds the
// per-step control-port detail.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	textHandler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewSecureHandler(textHandler))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output, for callers
// feeding logs to an aggregator.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewSecureHandler(jsonHandler))
}
