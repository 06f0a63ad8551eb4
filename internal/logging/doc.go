// Package logging constructs the process-wide slog loggers and shared
// attribute helpers. The console handler prints compact human-readable
// lines; the JSON handler emits one object per record for ingestion.
package logging
