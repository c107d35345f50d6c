// Package logging builds the slog loggers used across voxdub: a compact
// console format for terminals and a JSON format for machines, optionally
// teed into a per-run log file.
package logging
