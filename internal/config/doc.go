// Package config loads qbtctl settings.
//
// # Resolution order
//
//  1. Built-in defaults (qbt.DefaultBaseURL, qbt.DefaultPath, qbt.DefaultRequestTimeout)
//  2. The TOML file given with --config, or ~/.config/qbtctl/config.toml
//  3. QBT_* variables from a .env file in the working directory
//  4. QBT_* variables from the process environment
//
// A missing default config file is not an error; a missing explicit one is.
//
// # TOML Format
//
//	url = "http://localhost:8080"
//	path = "/api/v2"
//	username = "admin"
//	password = "adminadmin"
//	timeout = "10s"
//	proxy = "http://proxy:3128"
//	relogin = true
//	rate_limit = 5.0
//	debug = false
//
// # Environment
//
// QBT_URL, QBT_PATH, QBT_USERNAME, QBT_PASSWORD, QBT_TIMEOUT, QBT_PROXY,
// QBT_RELOGIN, QBT_RATE_LIMIT and QBT_DEBUG override the matching fields.
package config
