// Package config loads, normalizes, and validates condense configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CONDENSE_BACKEND_URL and OLLAMA_HOST. The Config type centralizes every knob
// the pipeline and CLI need: scratch and log directories, splitter budgets and
// prompt wrapping, backend connection and retry policy, merge separator, and
// watch-mode behaviour.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical backend kinds, and clear validation errors.
package config
