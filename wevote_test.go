package wevote

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logLevel("warn"))
	assert.Equal(t, slog.LevelError, logLevel("error"))
	assert.Equal(t, slog.LevelInfo, logLevel("info"))
	assert.Equal(t, slog.LevelInfo, logLevel(""))
}

func TestOptions(t *testing.T) {
	client := &http.Client{Timeout: time.Second}
	o := resolvedOptions{}
	for _, fn := range []Option{
		WithPort(9090),
		WithDatabaseURL("postgres://localhost/wevote"),
		WithVersion("1.2.3"),
		WithScanClient(client),
	} {
		fn(&o)
	}
	assert.Equal(t, 9090, o.port)
	assert.Equal(t, "postgres://localhost/wevote", o.databaseURL)
	assert.Equal(t, "1.2.3", o.version)
	assert.Same(t, client, o.scanClient)
	assert.Nil(t, o.logger)
}

func TestContextWithOptionalTimeout(t *testing.T) {
	ctx, cancel := contextWithOptionalTimeout(context.Background(), 0)
	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)
	cancel()
	assert.Error(t, ctx.Err())

	ctx, cancel = contextWithOptionalTimeout(context.Background(), time.Minute)
	defer cancel()
	_, hasDeadline = ctx.Deadline()
	assert.True(t, hasDeadline)
}
