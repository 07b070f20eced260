package scene

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlScene = `
name: fade
page: |
  <page><view id="box"></view></page>
scripts:
  - name: fade-in
    source: |
      animate("#box", { opacity: [0, 1] }, { duration: 0.2 })
`

const tomlScene = `
name = "slide"
page = "<page><view id='box'></view></page>"

[[scripts]]
name = "slide-in"
source = "animate('#box', { x: 100 })"

[[scripts]]
file = "extra.js"
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{name: "scene.yaml", want: FormatYAML},
		{name: "scene.YML", want: FormatYAML},
		{name: "dir/scene.toml", want: FormatTOML},
		{name: "scene.json", wantErr: true},
		{name: "scene", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatOf(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte(yamlScene), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "fade", s.Name)
	assert.Contains(t, s.Page, `<view id="box">`)
	require.Len(t, s.Scripts, 1)
	assert.Equal(t, "fade-in", s.Scripts[0].Name)
	assert.Contains(t, s.Scripts[0].Source, "animate(")

	s, err = Parse([]byte(tomlScene), FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, "slide", s.Name)
	require.Len(t, s.Scripts, 2)
	assert.Equal(t, "extra.js", s.Scripts[1].File)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		format  Format
		invalid bool
	}{
		{name: "unknown yaml field", data: "name: a\npage: x\ncolor: red\n", format: FormatYAML},
		{name: "unknown toml field", data: "name = 'a'\npage = 'x'\ncolor = 'red'\n", format: FormatTOML},
		{name: "malformed yaml", data: "name: [a\n", format: FormatYAML},
		{name: "missing name", data: "page: <page/>\n", format: FormatYAML, invalid: true},
		{name: "empty scene", data: "name: empty\n", format: FormatYAML, invalid: true},
		{name: "script without source", data: "name: a\nscripts:\n  - name: s\n", format: FormatYAML, invalid: true},
		{name: "script with source and file", data: "name: a\nscripts:\n  - source: x\n    file: y.js\n", format: FormatYAML, invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidScene)
			}
		})
	}

	_, err := Parse([]byte(yamlScene), Format("json"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoadResolvesScriptFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "slide.toml"), tomlScene)
	writeFile(t, filepath.Join(dir, "extra.js"), "console.log('extra')")

	s, err := Load(filepath.Join(dir, "slide.toml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "slide.toml"), s.Origin)
	require.Len(t, s.Scripts, 2)
	assert.Equal(t, "extra.js", s.Scripts[1].Name)
	assert.Equal(t, "console.log('extra')", s.Scripts[1].Source)
}

func TestLoadMissingScriptFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "slide.toml"), tomlScene)

	_, err := Load(filepath.Join(dir, "slide.toml"))
	assert.ErrorContains(t, err, "extra.js")
}

func TestLoadGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b", "fade.yaml"), yamlScene)
	writeFile(t, filepath.Join(dir, "a", "deep", "slide.toml"), tomlScene)
	writeFile(t, filepath.Join(dir, "a", "deep", "extra.js"), "1")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	scenes, err := LoadGlob(filepath.Join(dir, "**", "*"))
	require.NoError(t, err)
	require.Len(t, scenes, 2)
	assert.Equal(t, "slide", scenes[0].Name)
	assert.Equal(t, "fade", scenes[1].Name)

	scenes, err = LoadGlob(filepath.Join(dir, "**", "*.yaml"))
	require.NoError(t, err)
	require.Len(t, scenes, 1)

	scenes, err = LoadGlob(filepath.Join(dir, "none", "*.yaml"))
	require.NoError(t, err)
	assert.Empty(t, scenes)
}

func fastFetcher() *Fetcher {
	return NewFetcher(WithRetry(2, time.Millisecond, 5*time.Millisecond), WithTimeout(time.Second))
}

func TestFetchRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(yamlScene))
	}))
	defer srv.Close()

	s, err := fastFetcher().Fetch(context.Background(), srv.URL+"/scene")
	require.NoError(t, err)
	assert.Equal(t, "fade", s.Name)
	assert.Equal(t, srv.URL+"/scene", s.Origin)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchFormatFromPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("name = 'remote'\npage = '<page/>'\n"))
	}))
	defer srv.Close()

	s, err := fastFetcher().Fetch(context.Background(), srv.URL+"/remote.toml")
	require.NoError(t, err)
	assert.Equal(t, "remote", s.Name)
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.yaml":
			http.NotFound(w, r)
		case "/file.yaml":
			_, _ = w.Write([]byte("name: f\nscripts:\n  - file: local.js\n"))
		case "/down.yaml":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte("name: x\npage: y\n"))
		}
	}))
	defer srv.Close()

	f := fastFetcher()
	ctx := context.Background()

	_, err := f.Fetch(ctx, srv.URL+"/missing.yaml")
	assert.ErrorContains(t, err, "404")

	_, err = f.Fetch(ctx, srv.URL+"/file.yaml")
	assert.ErrorIs(t, err, ErrInvalidScene)

	_, err = f.Fetch(ctx, srv.URL+"/down.yaml")
	assert.Error(t, err)

	_, err = f.Fetch(ctx, srv.URL+"/scene.bin")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = f.Fetch(ctx, "ftp://example.com/scene.yaml")
	assert.ErrorContains(t, err, "invalid scene url")
}
