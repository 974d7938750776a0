// Package logging is the bridge's structured logger, a thin layer over
// log/slog.
//
//	logging:
//	  level: info      # debug, info, warn, error
//	  format: json     # json, text
//	  output: stdout   # stdout, stderr, discard
//
// Every entry carries service=tradfri-bridge and the build version.
//
// The gateway PSK and security code are never logged. Use Redact when an
// operator needs a hint of which key is loaded:
//
//	log.Info("session key loaded", "psk", logging.Redact(psk))
package logging
