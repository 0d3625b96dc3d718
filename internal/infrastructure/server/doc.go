// Package server runs the local control API: it assembles the gin router
// with its middleware stack and manages the HTTP server lifecycle.
package server
