// Command genctl drives the Text2APK generation backend from a terminal.
//
// Usage:
//
//	genctl generate "A simple calculator" --framework flutter
//	genctl history --limit 10
//	genctl frameworks
//	genctl status <generation-id>
//	genctl download <generation-id> -o app.apk
//	genctl serve --port 8081
//
// Configuration comes from environment variables (BACKEND_URL, LOG_LEVEL,
// ...) and an optional YAML or TOML file given with --config. Flags win
// over both.
package main
