package internal

import "github.com/jacobmentalconstruct/neocortex/internal/config"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *config.Config
	mcpMode bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *config.Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMCPMode switches the process to serve MCP over stdio instead of
// the HTTP API.
func WithMCPMode(enabled bool) Option {
	return func(a *application) {
		a.mcpMode = enabled
	}
}
