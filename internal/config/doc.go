// Package config loads, normalizes, and validates eventpulse configuration.
//
// Configuration is a TOML document resolved from an explicit path, then
// ~/.config/eventpulse/config.toml, then ./eventpulse.toml. Defaults cover
// every key so a missing file still yields a runnable local setup. Path
// fields are tilde-expanded and made absolute during normalization.
package config
