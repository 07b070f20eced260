// Package http provides the devtools REST API over a stage.
//
// Endpoints:
//   - Health: / and /health
//   - Page: GET /api/tree, POST /api/page, POST /api/query, POST /api/invoke
//   - Scripts: POST /api/scripts, GET /api/console, POST /api/runtime/reset
//   - Animations: POST /api/animate, DELETE /api/animations/:handle
//   - Registry: GET /api/registry
//   - Scenes: POST /api/scenes
//   - Log level: GET and PUT /api/log-level, when a LevelController is set
//
// Every page read goes through the native tree lock; every element write
// runs on the privileged loop of the stage.
//
// Example Usage:
//
//	handlers := http.NewHandlers(st, scene.NewFetcher(), logger.Component("api"),
//		http.WithLevelController(logger))
//	handlers.Register(router)
package http
