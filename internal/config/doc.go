// Package config loads voxdub settings from TOML with environment overrides
// for credentials.
//
// Search order: an explicit path, ~/.config/voxdub/config.toml, then
// ./voxdub.toml. A missing file is not an error; defaults apply.
package config
