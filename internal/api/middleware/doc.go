// Package middleware provides the gin middleware stack of the local control
// API: CORS, a global rate limit and request logging.
package middleware
