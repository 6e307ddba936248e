// Package logger provides the structured logger used across the UTDL
// runner: the scheduler and the CLI boundary log through it. Each line
// carries the fields passed to that call plus any merged in by With;
// the scheduler passes execution_id on its execution start/finish lines
// and step_id on its per-step lines.
//
// LOG_LEVEL (debug, info, warn, error) and LOG_FORMAT (json, text)
// control verbosity and output shape; both read from the environment
// at construction time via New().
package logger
