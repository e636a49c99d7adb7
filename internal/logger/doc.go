// Package logger provides structured logging for the extractors and the CLI.
//
// Features:
//   - Multiple log levels (TRACE, DEBUG, INFO, WARN, ERROR)
//   - Component-based filtering
//   - Multiple output formats (text, JSON, color)
//   - Bound fields per component logger
//   - Thread-safe operations
//
// Usage:
//
//	log := logger.New(logger.DefaultConfig()).WithComponent(logger.ComponentExtractor)
//
//	log.Info("sources decrypted", map[string]interface{}{
//		"sources": 2,
//		"tracks":  5,
//	})
//
//	// Configure from ANIWATCH_LOG_* environment variables
//	l, err := logger.CreateLoggerFromConfig(logger.EnvironmentConfig())
//
// Components:
//   - ComponentApp: CLI and facade logs
//   - ComponentExtractor: extraction stage transitions
//   - ComponentScanner: key schedule scanning
//   - ComponentCipher: key derivation and decryption
//   - ComponentClient: HTTP client logs
//   - ComponentEpisode: episode and server resolution
//   - ComponentSolver: script-driven schedule solving
//   - ComponentDownloader: track download logs
//
// Key material and secrets are never passed to the logger; only counts and
// lengths are.
package logger
