/*
Package monitoring provides metrics collection for the runtime.

# Overview

This package implements Prometheus-based metrics for the execution contexts,
the callable registry, element flushing, main-thread scripts and the
devtools API. Each Metrics value owns a private Prometheus registry so
several runtimes (and tests) can coexist in one process.

# Features

- Loop task counts and durations per execution context
- Registry size and handle invocations (resolved / unresolved)
- Native writes by kind and coalesced flushes
- UI method results by method
- Script runs and WebSocket stream activity

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

Every recorder is nil-safe:

	var m *monitoring.Metrics
	m.RecordFlush() // no-op
*/
package monitoring
