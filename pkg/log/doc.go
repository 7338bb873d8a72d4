/*
Package log provides structured logging for corestate using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper
functions for common logging patterns. Every subsystem (schema, events,
projection, saga, cascade, things, fts, vector, migration, errbound,
alarm, broadcast) logs through a component logger obtained from
WithComponent, so log lines are filterable by subsystem without any
subsystem importing another's internals.

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all corestate packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithInstanceID: Add instance ID context
  - WithStreamID: Add event-stream ID context
  - WithTransactionID: Add saga transaction ID context

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	schemaLog := log.WithComponent("schema")
	schemaLog.Info().Msg("schema initialized")

	sagaLog := log.WithComponent("saga").
		With().Str("transaction_id", txID).Logger()
	sagaLog.Error().Err(err).Msg("step failed, compensating")

# Log Output Examples

JSON Format (production):

	{"level":"info","component":"saga","time":"2026-07-31T10:30:00Z","message":"transaction committed"}

Console Format (development):

	10:30:00 INF transaction committed component=saga

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create component-specific loggers
  - Log errors with .Err() for stack traces

Don't:
  - Log event/thing payloads verbatim (they may carry caller data)
  - Use Debug level in production
  - Concatenate strings into the message (use typed fields)
*/
package log
