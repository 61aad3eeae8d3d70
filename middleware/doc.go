// Package middleware provides net/http middleware for token validation,
// role enforcement, and general rate limiting on top of the engine.
package middleware
