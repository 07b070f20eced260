// Package logging provides structured logging using uber/zap.
//
// Two output modes are supported:
//   - Production: JSON lines for machine parsing
//   - Development: colored console output
//
// Components take a *zap.Logger; Component derives a named child so every
// line carries the subsystem that wrote it. The level is atomic and can be
// changed while the server runs.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	loop := thread.New("main", thread.Main, thread.WithLogger(logger.Component("loop")))
//	logger.Info("Server starting", zap.String("port", "8000"))
package logging
