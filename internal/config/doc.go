// Package config loads the took shell configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/took/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. Apply .env and environment overrides (APP_ENV, TOOK_*)
//
// # TOML Format
//
//	env = "development"          # or "production"
//	scheme = "took"
//	api_url = "https://api.even-took.com"
//	web_url = "https://www.even-took.com"
//	project_id = "6380c63b-460c-43e1-a60a-3ca4f004da3d"
//	control_bind = "127.0.0.1:7531"
//	data_dir = "~/.local/share/took"
//
//	[device]
//	physical = true
//	push_permission = "undetermined"   # granted | denied | undetermined
//	location_permission = "undetermined"
//	prompt_answer = "granted"
//
// The [device] table configures the local stand-in for native permission
// prompts and token registration. All fields are optional.
//
// # Environment
//
//   - APP_ENV: development | production
//   - TOOK_API_URL, TOOK_WEB_URL, TOOK_PROJECT_ID, TOOK_CONTROL_BIND
//   - TOOK_STORAGE_SECRET: extra key material for the secure store
//   - TOOK_LOG_LEVEL, TOOK_LOG_FILE
//   - TOOK_DEVICE_PHYSICAL: false simulates an emulator
//
// Missing config files are NOT an error. An unknown env value is treated as
// development.
package config
