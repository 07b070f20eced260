package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/motionbridge/internal/server"
)

func TestParseKeyframes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]any
		wantErr bool
	}{
		{
			name:  "json",
			input: `{"opacity": [0, 1], "backgroundColor": "#f00"}`,
			want:  map[string]any{"opacity": []any{float64(0), float64(1)}, "backgroundColor": "#f00"},
		},
		{
			name:  "pairs",
			input: "opacity=0,1; width=10px,20px",
			want: map[string]any{
				"opacity": []any{float64(0), float64(1)},
				"width":   []any{"10px", "20px"},
			},
		},
		{name: "missing value", input: "opacity=", wantErr: true},
		{name: "missing separator", input: "opacity", wantErr: true},
		{name: "empty", input: " ; ", wantErr: true},
		{name: "bad json", input: "{opacity", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseKeyframes(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlotEase(t *testing.T) {
	graph, err := plotEase("linear", 20, 5)
	require.NoError(t, err)
	assert.Contains(t, graph, "linear")

	_, err = plotEase("wobble", 20, 5)
	assert.Error(t, err)

	_, err = plotEase("linear", 1, 5)
	assert.Error(t, err)
}

func TestSceneRequest(t *testing.T) {
	req, err := sceneRequest("https://example.com/intro.yaml")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/intro.yaml", req.URL)
	assert.Nil(t, req.Scene)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fade.js"), []byte("1 + 1"), 0o644))
	path := filepath.Join(dir, "intro.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: intro\nscripts:\n  - file: fade.js\n"), 0o644))

	req, err = sceneRequest(path)
	require.NoError(t, err)
	require.NotNil(t, req.Scene)
	require.Len(t, req.Scene.Scripts, 1)
	assert.Equal(t, "1 + 1", req.Scene.Scripts[0].Source)
	assert.Empty(t, req.Scene.Scripts[0].File)
	assert.NoError(t, req.Scene.Validate())
}

func run(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", url}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	cfg := config.Default()
	cfg.Runtime.FrameInterval = 2 * time.Millisecond
	cfg.Runtime.SanitizePages = false
	cfg.RateLimit.Enabled = false
	cfg.Logging.Development = true
	srv, err := server.New(cfg, logging.Nop())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
	})

	page := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(page, []byte(`<page><view id="box"></view><text class="item">a</text></page>`), 0o644))

	out, err := run(t, ts.URL, "page", page)
	require.NoError(t, err, out)
	assert.Contains(t, out, "page loaded")

	out, err = run(t, ts.URL, "run", "-e", `console.log("hello"); 40 + 2`)
	require.NoError(t, err, out)
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "42")

	out, err = run(t, ts.URL, "query", ".item")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 match(es)")

	out, err = run(t, ts.URL, "animate", "#box", "-k", "opacity=0,1", "--duration", "0.02", "--wait")
	require.NoError(t, err, out)
	assert.Contains(t, out, "finished")

	out, err = run(t, ts.URL, "registry")
	require.NoError(t, err, out)
	assert.Contains(t, out, "animate")

	out, err = run(t, ts.URL, "health")
	require.NoError(t, err, out)
	assert.True(t, strings.Contains(out, "healthy"), out)

	out, err = run(t, ts.URL, "log-level", "warn")
	require.NoError(t, err, out)
	assert.Contains(t, out, "warn")

	_, err = run(t, ts.URL, "run", "-e", `throw new Error("bad")`)
	assert.Error(t, err)
}
