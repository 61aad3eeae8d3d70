// Package credgate is an embeddable credential authentication engine for
// applications that are part-way through a password-hash migration.
//
// Accounts carry either a deprecated unsalted legacy digest or a salted
// argon2id hash. The engine verifies whichever scheme is authoritative for
// the record and, on a successful legacy-path login, transparently migrates
// the account to argon2id with a conditional store update that is safe under
// concurrent logins. It also enforces per-account lockout after repeated
// failures and per-client sliding-window rate limits on login, registration,
// and general traffic.
//
// The engine is constructed once through the [Builder] and is immutable and
// safe for concurrent use afterwards:
//
//	engine, err := credgate.New().
//		WithConfig(cfg).
//		WithRedis(redisClient).
//		WithStore(credentialStore).
//		Build()
//
// Callers provide a [CredentialStore] implementation (the store package
// ships in-memory and Postgres implementations) and translate the returned
// [AuthOutcome] into their transport of choice.
package credgate
