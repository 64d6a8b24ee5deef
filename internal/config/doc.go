// Package config handles loading and parsing logview configuration files.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/logview/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Server URL: http://127.0.0.1:8080
//   - Viewer log file: ~/.local/state/logview/logview.log
//   - Follow threshold: 5 rows from the bottom
//   - Buffer limit: 5000 lines
//   - Reconnect: 1s base delay, doubling, capped at 30s, 10 attempts
//   - Serve: listen on :8080, poll the watched file every 300ms
//
// # TOML Format
//
//	server_url = "http://127.0.0.1:8080"
//	log_file = "~/.local/state/logview/logview.log"
//	follow_threshold = 5
//	buffer_limit = 5000
//
//	[reconnect]
//	base_delay_ms = 1000
//	max_delay_ms = 30000
//	max_attempts = 10
//
//	[serve]
//	listen = ":8080"
//	file = "/var/log/app.log"   # or dir = "/var/log/app"
//	poll_interval_ms = 300
//
// All fields are optional. Tilde expansion is performed for log_file,
// serve.file and serve.dir. A max_delay_ms below base_delay_ms is raised to
// the base delay so the backoff never shrinks.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than
// os.ErrNotExist, and TOML parse errors. Missing config files are not an
// error.
package config
