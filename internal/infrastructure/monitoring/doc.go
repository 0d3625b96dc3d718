/*
Package monitoring provides metrics collection for genctl.

# Overview

This package implements Prometheus-based metrics for the generation client:
session outcomes, progress channel traffic, cache refreshes, calls to the
generation backend and requests served by the local control API. Each
Metrics value owns its registry so several instances can coexist in tests.

# Usage

	metrics := monitoring.NewMetrics()

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "generate")
	// ... call the backend ...
	timer.Stop("202")
*/
package monitoring
