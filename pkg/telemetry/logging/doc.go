// Package logging configures the process-wide slog logger.
//
// Components log through slog.Default().With("component", ...). Setup
// installs a JSON or text handler whose ReplaceAttr hook masks credentials,
// and a context handler that adds request and research attributes carried in
// the context:
//
//	logger, err := logging.Setup(cfg.Telemetry.Logging, os.Stderr)
//
//	ctx = logging.WithProductKey(ctx, "acai")
//	slog.InfoContext(ctx, "lookup served", "source", "cache")
//
// # Redaction
//
// Attributes whose key names a credential (api_key, authorization, token,
// secret, password and any configured extras) are replaced with [REDACTED].
// String values that look like API keys or bearer tokens are masked
// wherever they appear.
package logging
