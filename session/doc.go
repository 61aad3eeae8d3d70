// Package session turns a successful authentication outcome into a signed,
// opaque claim set and validates claims presented back by callers.
//
// Claims carry identity, role, and display name only — never hash material —
// and are the single source of truth for "current role": nothing else
// duplicates that state. Tokens issued without remember expire after a
// sliding window that [Issuer.Renew] extends on activity; remember tokens
// get one fixed long expiry.
package session
