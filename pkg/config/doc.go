// Package config loads typed configuration structs from environment
// variables (with optional .env file support) and caches one instance per
// type for the lifetime of the process.
package config
