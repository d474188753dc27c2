// Package api provides an HTTP API server for inspecting a dashboard session:
// its derived state, recent frames, layout manifest and brain health.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8091")
	ListenAddr string

	// ManifestPath is the dashboard manifest file. Empty serves the default
	// layout.
	ManifestPath string
}
