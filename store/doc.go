// Package store ships the two CredentialStore implementations: Memory for
// tests and single-process embedding, and Postgres for production.
//
// Both make the migration write a conditional update keyed on the migrated
// flag, so two concurrent logins against the same unmigrated account race
// safely: one write wins, the loser is a no-op, and both logins succeed.
// Failure counting and lockout-setting are likewise single atomic updates
// per record.
package store
