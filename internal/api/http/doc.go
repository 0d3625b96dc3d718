// Package http serves the local control API.
//
// The API lets a front end drive the generation client over HTTP: submit a
// prompt, poll the current session, reset it and read the cached history
// and catalog. Every route is a thin adapter over the app components.
package http
