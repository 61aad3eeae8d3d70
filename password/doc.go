// Package password implements the two hashing schemes a credential record
// can carry: the deprecated unsalted legacy digest, kept only to verify
// pre-migration accounts, and the salted argon2id scheme that becomes
// authoritative once an account is migrated.
//
// [Argon2] produces self-describing PHC strings, so the parameters a hash
// was created with travel inside the hash itself; [Argon2.NeedsRehash]
// compares them against the currently configured minimums, which lets a
// future parameter bump ride the same opportunistic upgrade path instead of
// needing another bespoke migration.
package password
