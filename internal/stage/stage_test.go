package stage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/motionbridge/internal/motion"
	"github.com/GriffinCanCode/motionbridge/internal/scene"
	"github.com/GriffinCanCode/motionbridge/internal/script"
)

func newStage(t *testing.T) *Stage {
	t.Helper()
	cfg := DefaultConfig()
	cfg.FrameInterval = 2 * time.Millisecond
	cfg.Script.Timeout = time.Second

	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewExportsEntryPoints(t *testing.T) {
	s := newStage(t)

	status := s.Status()
	assert.Equal(t, uint64(0), status.Seq)
	assert.Contains(t, status.Exports, motion.EntryAnimate)
	assert.Contains(t, status.Exports, motion.EntryStagger)
	assert.Equal(t, 2, status.Handles)
}

func TestLoadPageRebindsDocument(t *testing.T) {
	s := newStage(t)
	ctx := context.Background()

	require.NoError(t, s.LoadPage(ctx, strings.NewReader(`<page><view id="a"></view></page>`)))
	res, err := s.Execute(ctx, `globalThis.kept = 1; document.querySelector("#a") !== null`)
	require.NoError(t, err)
	assert.Equal(t, true, res.Value)

	require.NoError(t, s.LoadPage(ctx, strings.NewReader(`<page><view id="b"></view></page>`)))
	res, err = s.Execute(ctx, `[document.querySelector("#a") === null, document.querySelector("#b") !== null, typeof kept]`)
	require.NoError(t, err)
	assert.Equal(t, []any{true, true, "undefined"}, res.Value)
}

func TestLoadPageSanitizes(t *testing.T) {
	s := newStage(t)

	require.NoError(t, s.LoadPage(context.Background(),
		strings.NewReader(`<page><script>alert(1)</script><view id="a"></view></page>`)))
	assert.NotContains(t, s.Tree().HTML(), "<script")
}

func TestLoadPageStopsAnimations(t *testing.T) {
	s := newStage(t)
	ctx := context.Background()
	require.NoError(t, s.LoadPage(ctx, strings.NewReader(`<page><view id="a"></view></page>`)))

	_, err := s.Execute(ctx, `animate("#a", { opacity: [0, 1] }, { duration: 0.01, repeat: Infinity })`)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Status().Animations)
	handles := s.Status().Handles

	require.NoError(t, s.LoadPage(ctx, strings.NewReader(`<page><view id="b"></view></page>`)))
	status := s.Status()
	assert.Equal(t, 0, status.Animations)
	assert.Equal(t, handles-1, status.Handles)
}

func TestPlay(t *testing.T) {
	s := newStage(t)
	sc := &scene.Scene{
		Name: "fade",
		Page: `<page><view id="box"></view></page>`,
		Scripts: []scene.Script{
			{Name: "style", Source: `const box = document.querySelector("#box"); box.setStyleProperty("opacity", "0.5"); box.getComputedStyle().opacity`},
			{Name: "fresh", Source: `document.querySelector("#box").getComputedStyle().opacity`},
		},
	}

	res, err := s.Play(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, res.Scripts, 2)
	assert.Equal(t, "fade", res.Scene)
	assert.Equal(t, "0.5", res.Scripts[0].Value)
	// A new view starts from computed defaults.
	assert.Equal(t, "1", res.Scripts[1].Value)

	require.Eventually(t, func() bool {
		return strings.Contains(s.Tree().HTML(), "opacity: 0.5")
	}, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, s.Status().Seq, uint64(1))
}

func TestPlayStopsAtFirstFailure(t *testing.T) {
	s := newStage(t)
	sc := &scene.Scene{
		Name: "broken",
		Scripts: []scene.Script{
			{Name: "ok", Source: `1`},
			{Name: "bad", Source: `throw new Error("boom")`},
			{Name: "never", Source: `2`},
		},
	}

	res, err := s.Play(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `script "bad"`)
	require.Len(t, res.Scripts, 2)
	assert.Contains(t, res.Scripts[1].Error, "boom")
}

func TestClose(t *testing.T) {
	cfg := DefaultConfig()
	s, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	_, err = s.Execute(context.Background(), "1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, script.ErrTimeout)
}
