// Package rate implements the per-client-key sliding-window attempt
// limiter. Each endpoint class (login, registration, general) has an
// independent budget; a key's attempts live in a Redis sorted set scored by
// millisecond timestamp, and the check-and-record step runs inside a Lua
// script so concurrent requests cannot over-admit.
//
// Windows are rolling: an attempt at t and one at t+61s never share a
// one-minute bucket.
package rate
