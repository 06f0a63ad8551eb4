// Package config loads, normalizes, and validates slidecast configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the pipeline, watch loop, and CLI need, and RenderVersion fingerprints the
// settings that affect rendered pixels so segment cache keys can include
// them.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
