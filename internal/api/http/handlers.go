package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/motionbridge/internal/bridge"
	"github.com/GriffinCanCode/motionbridge/internal/element"
	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/motionbridge/internal/motion"
	"github.com/GriffinCanCode/motionbridge/internal/motion/tween"
	"github.com/GriffinCanCode/motionbridge/internal/native"
	"github.com/GriffinCanCode/motionbridge/internal/registry"
	"github.com/GriffinCanCode/motionbridge/internal/scene"
	"github.com/GriffinCanCode/motionbridge/internal/script"
	"github.com/GriffinCanCode/motionbridge/internal/stage"
	"github.com/GriffinCanCode/motionbridge/internal/thread"
)

// Version is reported by Root.
const Version = "0.3.0"

// invokeTimeout bounds a native UI method call made over HTTP.
const invokeTimeout = 10 * time.Second

// Handlers contains all HTTP handlers of the devtools API.
type Handlers struct {
	stage   *stage.Stage
	fetcher *scene.Fetcher
	logger  *zap.Logger
	levels  LevelController
}

// LevelController reads and changes the process log level.
// *logging.Logger implements it.
type LevelController interface {
	Level() string
	SetLevel(level string) error
}

// HandlerOption configures Handlers.
type HandlerOption func(*Handlers)

// WithLevelController mounts the log level routes.
func WithLevelController(lc LevelController) HandlerOption {
	return func(h *Handlers) {
		h.levels = lc
	}
}

// NewHandlers creates a handler set over st. fetcher may be nil, in which
// case scenes can only be posted inline.
func NewHandlers(st *stage.Stage, fetcher *scene.Fetcher, logger *zap.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handlers{stage: st, fetcher: fetcher, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Root reports the service identity.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "motionbridge devtools",
		"version": Version,
	})
}

// Health reports flush and registry state.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"stage":  h.stage.Status(),
	})
}

// Tree returns the page as of the last flush. ?live=true renders pending
// writes too.
func (h *Handlers) Tree(c *gin.Context) {
	tree := h.stage.Tree()
	html := tree.HTML()
	if c.Query("live") == "true" {
		html = tree.Live()
	}
	c.JSON(http.StatusOK, gin.H{
		"seq":     tree.Seq(),
		"html":    html,
		"pending": tree.Pending(),
	})
}

// LoadPage replaces the page with the request body. Binary bodies are
// rejected.
func (h *Handlers) LoadPage(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, native.MaxPageSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(body) > native.MaxPageSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "page too large"})
		return
	}
	if mtype := mimetype.Detect(body); !isText(mtype) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"error":     "page must be HTML text",
			"mime_type": mtype.String(),
		})
		return
	}

	if err := h.stage.LoadPage(c.Request.Context(), bytes.NewReader(body)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bytes":   len(body),
		"seq":     h.stage.Tree().Seq(),
	})
}

func isText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// RunScript executes a script and returns its result. The result body is
// returned for failed runs as well.
func (h *Handlers) RunScript(c *gin.Context) {
	var req ScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.stage.Execute(c.Request.Context(), req.Source)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, script.ErrTimeout):
		c.JSON(http.StatusRequestTimeout, result)
	case errors.Is(err, script.ErrClosed), errors.Is(err, thread.ErrLoopStopped):
		c.JSON(http.StatusServiceUnavailable, result)
	default:
		c.JSON(http.StatusUnprocessableEntity, result)
	}
}

// Console returns the retained script console history.
func (h *Handlers) Console(c *gin.Context) {
	entries := h.stage.Runtime().Console()
	if runID := c.Query("run_id"); runID != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.RunID == runID {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ResetRuntime drops script globals and timers.
func (h *Handlers) ResetRuntime(c *gin.Context) {
	if err := h.stage.Runtime().Reset(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Query describes the nodes matching a selector or an XPath expression.
func (h *Handlers) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (req.Selector == "") == (req.XPath == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of selector and xpath is required"})
		return
	}

	tree := h.stage.Tree()
	var refs []element.NodeRef
	if req.XPath != "" {
		var err error
		if refs, err = tree.QueryXPath(req.XPath); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		if _, err := cascadia.Compile(req.Selector); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid selector: " + err.Error()})
			return
		}
		refs = tree.QuerySelectorAll(tree.Root(), req.Selector, element.QueryOptions{})
	}

	nodes := make([]native.Node, 0, len(refs))
	for _, ref := range refs {
		if n, ok := tree.Inspect(ref); ok {
			nodes = append(nodes, n)
		}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(nodes), "nodes": nodes})
}

// Invoke calls a native UI method and waits for its response.
func (h *Handlers) Invoke(c *gin.Context) {
	var req InvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), invokeTimeout)
	defer cancel()

	future, err := bridge.As[*thread.Future[any]](h.stage.Bridge().RunOnMain(ctx, func(context.Context) (any, error) {
		el := h.stage.Host().QuerySelector(req.Selector)
		if el == nil {
			return nil, nil
		}
		return el.Invoke(req.Method, req.Params), nil
	}))
	if err != nil {
		h.fail(c, err)
		return
	}
	if future == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no element matches " + strconv.Quote(req.Selector)})
		return
	}

	data, err := future.Await(ctx)
	var invokeErr *element.InvokeError
	switch {
	case errors.As(err, &invokeErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": invokeErr.Response.Code})
	case err != nil:
		h.fail(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"data": data})
	}
}

// Animate starts animations on every element matching the selector. The
// elements are resolved on the privileged loop; the animations are started
// through the exported animate entry point from the request goroutine.
func (h *Handlers) Animate(c *gin.Context) {
	var req AnimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kf, err := keyframes(req.Keyframes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	targets, err := bridge.As[[]*element.Element](h.stage.Bridge().RunOnMain(ctx, func(context.Context) (any, error) {
		return h.stage.Host().QuerySelectorAll(req.Selector), nil
	}))
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(targets) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no element matches " + strconv.Quote(req.Selector)})
		return
	}

	opts := req.Options.tween()
	controls := make([]*motion.Controls, 0, len(targets))
	handles := make([]registry.Handle, 0, len(targets))
	for i, el := range targets {
		o := opts
		o.Delay += time.Duration(i) * seconds(req.Options.Stagger)
		ctl, err := h.stage.Motion().Animate(ctx, el, kf, o)
		if err != nil {
			for _, started := range controls {
				_ = started.Stop(ctx)
			}
			h.fail(c, err)
			return
		}
		controls = append(controls, ctl)
		handles = append(handles, ctl.Handle())
	}

	if req.Wait {
		for _, ctl := range controls {
			select {
			case <-ctl.Finished():
			case <-ctx.Done():
				h.fail(c, ctx.Err())
				return
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(controls),
		"handles":  handles,
		"finished": req.Wait,
	})
}

// StopAnimation stops the animation whose stop handle is :handle.
// Stopping a finished animation is a no-op; handles bound to anything else
// are not found.
func (h *Handlers) StopAnimation(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("handle"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid handle"})
		return
	}
	if err := h.stage.Motion().Stop(c.Request.Context(), registry.Handle(id)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "handle": id})
}

// LogLevel reports the current log level.
func (h *Handlers) LogLevel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"level": h.levels.Level()})
}

// SetLogLevel changes the log level of every component.
func (h *Handlers) SetLogLevel(c *gin.Context) {
	var req LogLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.levels.SetLevel(req.Level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("Log level changed", zap.String("level", h.levels.Level()))
	c.JSON(http.StatusOK, gin.H{"level": h.levels.Level()})
}

// Registry reports the handle table.
func (h *Handlers) Registry(c *gin.Context) {
	status := h.stage.Status()
	c.JSON(http.StatusOK, gin.H{
		"handles": status.Handles,
		"exports": status.Exports,
		"easings": tween.Easings(),
	})
}

// PlayScene plays an inline scene or one fetched from a URL.
func (h *Handlers) PlayScene(c *gin.Context) {
	var req SceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	sc := req.Scene
	switch {
	case (req.URL == "") == (sc == nil):
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of url and scene is required"})
		return
	case req.URL != "":
		if h.fetcher == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "scene fetching is disabled"})
			return
		}
		fetched, err := h.fetcher.Fetch(ctx, req.URL)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		sc = fetched
	default:
		if err := sc.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		for _, s := range sc.Scripts {
			if s.File != "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "inline scenes cannot reference script files"})
				return
			}
		}
	}

	result, err := h.stage.Play(ctx, sc)
	if err != nil {
		h.logger.Warn("Scene failed",
			zap.String("scene", sc.Name),
			tracing.Field(ctx),
			zap.Error(err),
		)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

// fail maps an internal error to a status code.
func (h *Handlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, thread.ErrLoopStopped), errors.Is(err, script.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		status = 499
	case errors.Is(err, tween.ErrUnknownEase), errors.Is(err, tween.ErrOffsets),
		errors.Is(err, tween.ErrNoKeyframes), errors.Is(err, tween.ErrSpringKeyframes),
		errors.Is(err, motion.ErrArguments):
		status = http.StatusBadRequest
	case errors.Is(err, motion.ErrNotAnimation):
		status = http.StatusNotFound
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			tracing.Field(c.Request.Context()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
