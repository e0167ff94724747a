package wevote

import (
	"log/slog"
	"net/http"
)

// Option configures an App.
type Option func(*resolvedOptions)

type resolvedOptions struct {
	port        int
	databaseURL string
	logger      *slog.Logger
	version     string
	scanClient  *http.Client
}

// WithPort overrides WEVOTE_PORT.
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithDatabaseURL overrides DATABASE_URL.
func WithDatabaseURL(url string) Option {
	return func(o *resolvedOptions) { o.databaseURL = url }
}

// WithLogger sets the structured logger. Without it New builds a JSON logger
// on stdout at WEVOTE_LOG_LEVEL.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version reported by /health and the MCP server.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithScanClient replaces the HTTP client used to fetch voter guide pages.
// The default client times out after WEVOTE_SCAN_TIMEOUT.
func WithScanClient(c *http.Client) Option {
	return func(o *resolvedOptions) { o.scanClient = c }
}
