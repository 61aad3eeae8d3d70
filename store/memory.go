package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/varkas/credgate"
)

// Memory is an in-memory [credgate.CredentialStore]. All mutations run
// under one mutex; operations are map lookups and field writes, so the
// critical sections are tiny and never include hashing.
type Memory struct {
	mu      sync.Mutex
	records map[string]*credgate.CredentialRecord // keyed by normalized identity
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*credgate.CredentialRecord),
	}
}

// Seed inserts a record directly, bypassing uniqueness errors. Intended for
// tests that need pre-existing legacy accounts.
func (m *Memory) Seed(rec *credgate.CredentialRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *rec
	clone.Identity = credgate.NormalizeIdentity(rec.Identity)
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	m.records[clone.Identity] = &clone
}

// FindByIdentity implements [credgate.CredentialStore].
func (m *Memory) FindByIdentity(_ context.Context, identity string) (*credgate.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[credgate.NormalizeIdentity(identity)]
	if !ok {
		return nil, credgate.ErrRecordNotFound
	}

	clone := *rec
	return &clone, nil
}

// Create implements [credgate.CredentialStore].
func (m *Memory) Create(_ context.Context, rec *credgate.CredentialRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity := credgate.NormalizeIdentity(rec.Identity)
	if _, exists := m.records[identity]; exists {
		return credgate.ErrIdentityExists
	}

	clone := *rec
	clone.Identity = identity
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	m.records[identity] = &clone
	rec.ID = clone.ID
	rec.Identity = identity

	return nil
}

// MarkMigrated implements [credgate.CredentialStore]. The check and the
// write happen under the same lock, which is the in-memory equivalent of
// the conditional UPDATE the Postgres store issues.
func (m *Memory) MarkMigrated(_ context.Context, identity, secureHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[credgate.NormalizeIdentity(identity)]
	if !ok {
		return false, credgate.ErrRecordNotFound
	}
	if rec.Migrated {
		return false, nil
	}

	rec.SecureHash = secureHash
	rec.Migrated = true
	return true, nil
}

// RecordFailure implements [credgate.CredentialStore].
func (m *Memory) RecordFailure(_ context.Context, identity string, threshold int, lockFor time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[credgate.NormalizeIdentity(identity)]
	if !ok {
		return 0, credgate.ErrRecordNotFound
	}

	rec.FailedAttempts++
	if rec.FailedAttempts >= threshold {
		until := time.Now().Add(lockFor)
		rec.LockedUntil = &until
	}

	return rec.FailedAttempts, nil
}

// RecordSuccess implements [credgate.CredentialStore].
func (m *Memory) RecordSuccess(_ context.Context, identity string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[credgate.NormalizeIdentity(identity)]
	if !ok {
		return credgate.ErrRecordNotFound
	}

	rec.FailedAttempts = 0
	rec.LockedUntil = nil
	stamp := at
	rec.LastLoginAt = &stamp

	return nil
}

// UpdateSecureHash implements [credgate.CredentialStore]. Only migrated
// records qualify; an unmigrated record reports ErrRecordNotFound just
// like the conditional UPDATE the Postgres store issues.
func (m *Memory) UpdateSecureHash(_ context.Context, identity, secureHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[credgate.NormalizeIdentity(identity)]
	if !ok || !rec.Migrated {
		return credgate.ErrRecordNotFound
	}

	rec.SecureHash = secureHash
	return nil
}

// UpdateRole implements [credgate.CredentialStore].
func (m *Memory) UpdateRole(_ context.Context, identity string, role credgate.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[credgate.NormalizeIdentity(identity)]
	if !ok {
		return credgate.ErrRecordNotFound
	}

	rec.Role = role
	return nil
}

// SetActive implements [credgate.CredentialStore].
func (m *Memory) SetActive(_ context.Context, identity string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[credgate.NormalizeIdentity(identity)]
	if !ok {
		return credgate.ErrRecordNotFound
	}

	rec.Active = active
	return nil
}
