// Package logging provides opt-in file-based logging with rotation for the
// search backend. When the --debug flag is set on the CLI, comprehensive
// structured logs are written to ~/.equipsearch/logs/ for troubleshooting
// index builds, hot-reload events, and provider fallbacks.
//
// By default (without --debug), logging is minimal and goes to stderr only.
package logging
