// Package config loads, parses and validates application settings from the
// environment, an optional .env file and an optional config.yaml. Every key is
// declared up front; Load fails fast when a required key is absent.
package config
