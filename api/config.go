// Package api provides the HTTP surface of the brain service: brain
// lifecycle, file ingestion, chat, and runtime cache management.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string
}
