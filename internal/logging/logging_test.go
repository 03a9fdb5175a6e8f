package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleHandler_Prefixes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, slog.LevelInfo))

	logger.Info("querying users", "roles", "admin,agent")
	Success(context.Background(), logger, "data exported", "path", "/tmp/out file.json")
	logger.Warn("rate limited", "wait", "1m0s")
	logger.Error("export failed", "error", errors.New("boom"))
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "[~] querying users roles=admin,agent", lines[0])
	assert.Equal(t, `[+] data exported path="/tmp/out file.json"`, lines[1])
	assert.Equal(t, "[-] rate limited wait=1m0s", lines[2])
	assert.Equal(t, "[-] export failed error=boom", lines[3])
}

func TestConsoleHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConsoleHandler(&buf, slog.LevelDebug)).
		With("cycle_id", "c1").
		WithGroup("http")

	logger.Debug("request", "status", 200, slog.Group("page", "size", 100))

	assert.Equal(t, "[~] request cycle_id=c1 http.status=200 http.page.size=100\n", buf.String())
}

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		check   func(t *testing.T, out string)
		wantErr bool
	}{
		{
			name:   "console default",
			format: "",
			check: func(t *testing.T, out string) {
				assert.True(t, strings.HasPrefix(out, "[+] done"))
			},
		},
		{
			name:   "text",
			format: "text",
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "level=SUCCESS")
				assert.Contains(t, out, "msg=done")
			},
		},
		{
			name:   "json",
			format: "JSON",
			check: func(t *testing.T, out string) {
				var rec map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(out), &rec))
				assert.Equal(t, "SUCCESS", rec["level"])
				assert.Equal(t, "done", rec["msg"])
			},
		},
		{name: "unknown", format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(&buf, tt.format, slog.LevelInfo)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			Success(context.Background(), logger, "done")
			tt.check(t, buf.String())
		})
	}
}

func TestFromContext(t *testing.T) {
	fallback := Discard()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	stored := Discard()
	ctx := WithLogger(context.Background(), stored)
	assert.Same(t, stored, FromContext(ctx, fallback))

	assert.NotNil(t, FromContext(context.Background(), nil))
}
