package credgate

import (
	"context"
	"log/slog"

	"github.com/varkas/credgate/password"
)

// credentialVerifier is one hashing scheme in the engine's verification
// chain. The chain is ordered; the first verifier whose supports reports
// true handles the record. upgrade runs after a successful verification and
// may rewrite the stored credential; it is best effort and must never fail
// the login that triggered it.
//
// Adding a scheme means adding a chain entry, not touching the decision
// flow in Authenticate.
type credentialVerifier interface {
	scheme() string
	supports(rec *CredentialRecord) bool
	verify(rec *CredentialRecord, secret string) (bool, error)
	upgrade(ctx context.Context, e *Engine, rec *CredentialRecord, secret string)
}

func (e *Engine) verifierFor(rec *CredentialRecord) credentialVerifier {
	for _, v := range e.verifiers {
		if v.supports(rec) {
			return v
		}
	}
	return nil
}

// legacyVerifier matches unmigrated records against the deprecated digest
// and migrates them to argon2id on success.
type legacyVerifier struct {
	hasher *password.Legacy
}

func (v *legacyVerifier) scheme() string { return "legacy" }

func (v *legacyVerifier) supports(rec *CredentialRecord) bool {
	return !rec.Migrated && rec.LegacyHash != ""
}

func (v *legacyVerifier) verify(rec *CredentialRecord, secret string) (bool, error) {
	return v.hasher.Matches(rec.LegacyHash, secret), nil
}

// upgrade performs the one-shot legacy-to-secure migration. The store's
// conditional write decides the winner under concurrency; losing the race
// means another login already migrated the record, which is success by
// other means.
func (v *legacyVerifier) upgrade(ctx context.Context, e *Engine, rec *CredentialRecord, secret string) {
	secureHash, err := e.secure.Hash(secret)
	if err != nil {
		e.logger.ErrorContext(ctx, "migration hash derivation failed",
			slog.String("identity", rec.Identity), slog.Any("error", err))
		return
	}

	won, err := e.store.MarkMigrated(ctx, rec.Identity, secureHash)
	if err != nil {
		// The record stays legacy and migrates on a future login.
		e.logger.ErrorContext(ctx, "migration write failed",
			slog.String("identity", rec.Identity), slog.Any("error", err))
		return
	}
	if !won {
		e.metrics.Inc(MetricMigrationRaceLost)
		return
	}

	e.metrics.Inc(MetricMigrationCompleted)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventCredentialMigrated,
		Identity:  rec.Identity,
		IP:        clientIPFromContext(ctx),
		Success:   true,
	})
}

// secureVerifier matches migrated records against their PHC argon2id string
// and opportunistically re-hashes when the stored parameters fall below the
// configured ones.
type secureVerifier struct {
	hasher *password.Argon2
}

func (v *secureVerifier) scheme() string { return "argon2id" }

func (v *secureVerifier) supports(rec *CredentialRecord) bool {
	return rec.Migrated && rec.SecureHash != ""
}

func (v *secureVerifier) verify(rec *CredentialRecord, secret string) (bool, error) {
	return v.hasher.Verify(rec.SecureHash, secret)
}

func (v *secureVerifier) upgrade(ctx context.Context, e *Engine, rec *CredentialRecord, secret string) {
	if !e.config.Password.RehashOnLogin {
		return
	}

	needs, err := v.hasher.NeedsRehash(rec.SecureHash)
	if err != nil || !needs {
		return
	}

	secureHash, err := v.hasher.Hash(secret)
	if err != nil {
		e.logger.ErrorContext(ctx, "rehash derivation failed",
			slog.String("identity", rec.Identity), slog.Any("error", err))
		return
	}
	if err := e.store.UpdateSecureHash(ctx, rec.Identity, secureHash); err != nil {
		e.logger.WarnContext(ctx, "rehash write failed",
			slog.String("identity", rec.Identity), slog.Any("error", err))
		return
	}

	e.metrics.Inc(MetricRehashUpgraded)
}
