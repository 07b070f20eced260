package http

import "github.com/gin-gonic/gin"

// Register mounts the devtools API on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	api := r.Group("/api")

	// Page and flush state
	api.GET("/tree", h.Tree)
	api.POST("/page", h.LoadPage)
	api.POST("/query", h.Query)
	api.POST("/invoke", h.Invoke)

	// Scripts
	api.POST("/scripts", h.RunScript)
	api.GET("/console", h.Console)
	api.POST("/runtime/reset", h.ResetRuntime)

	// Animations and handles
	api.POST("/animate", h.Animate)
	api.DELETE("/animations/:handle", h.StopAnimation)
	api.GET("/registry", h.Registry)

	// Scenes
	api.POST("/scenes", h.PlayScene)

	if h.levels != nil {
		api.GET("/log-level", h.LogLevel)
		api.PUT("/log-level", h.SetLogLevel)
	}
}
