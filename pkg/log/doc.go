/*
Package log provides structured logging for outpost using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
zone-specific loggers, configurable log levels, and helper functions for
common logging patterns.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Context Loggers                     │          │
	│  │  - WithComponent("journal")                 │          │
	│  │  - WithZone("example.com.")                 │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	zoneLog := log.WithZone("example.com.")
	zoneLog.Info().Uint32("serial", 2024010100).Msg("changeset stored")
	zoneLog.Error().Err(err).Msg("store failed")

# Best Practices

Do:
  - Use structured fields (.Str, .Uint32, .Err) instead of string concatenation
  - Tag every journal log line with WithZone so entries for concurrently
    open zones can be told apart
  - Use Info level in production, Debug only while troubleshooting

Don't:
  - Log changeset RR contents at Info level; they belong at Debug since
    insertion runs per incoming transfer and can be frequent
  - Block on log writes in the insertion hot path

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
