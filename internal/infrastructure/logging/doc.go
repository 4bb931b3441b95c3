// Package logging wraps log/slog for the acquisition service.
//
// Every entry carries service and version fields; the level, format
// (JSON or text) and destination come from the logging section of the
// config file. Domain packages do not import this package directly:
// they declare their own small Logger interface and receive an
// implementation at construction, so they stay testable with a silent
// default.
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("bus scan complete", "sensors", n)
//
// Keep secrets out of log fields; broker credentials and tokens are
// never logged, not even truncated.
package logging
