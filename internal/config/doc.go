// Package config loads, normalizes, and validates clipper configuration.
//
// Files are TOML by default; a path ending in .yml or .yaml is decoded as YAML.
// Unset directories are derived from paths.data_dir, "~" is expanded, and
// credentials fall back to environment variables (CLIPPER_CATALOG_TOKEN or
// TOKEN, B2_KEY_ID, B2_APP_KEY). CreateSample writes the embedded
// sample_config.toml for "clipper config init".
package config
