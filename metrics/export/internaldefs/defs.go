package internaldefs

import (
	credgate "github.com/varkas/credgate"
)

// CounterDef binds one engine counter to its exported metric name.
type CounterDef struct {
	ID   credgate.MetricID
	Name string
	Help string
}

// CounterDefs is the shared catalog both exporters render from, so the
// Prometheus and OTel views of the engine never disagree on naming.
var CounterDefs = []CounterDef{
	{ID: credgate.MetricLoginSuccess, Name: "credgate_login_success_total", Help: "Successful login attempts."},
	{ID: credgate.MetricLoginFailure, Name: "credgate_login_failure_total", Help: "Rejected login attempts."},
	{ID: credgate.MetricLoginLocked, Name: "credgate_login_locked_total", Help: "Login attempts refused by an active lockout."},
	{ID: credgate.MetricLoginRateLimited, Name: "credgate_login_rate_limited_total", Help: "Login attempts denied by the rate limiter."},
	{ID: credgate.MetricLockoutTriggered, Name: "credgate_lockout_triggered_total", Help: "Failure streaks that armed a lockout."},
	{ID: credgate.MetricMigrationCompleted, Name: "credgate_migration_completed_total", Help: "Legacy credentials migrated to the secure scheme."},
	{ID: credgate.MetricMigrationRaceLost, Name: "credgate_migration_race_lost_total", Help: "Migration writes lost to a concurrent login."},
	{ID: credgate.MetricRehashUpgraded, Name: "credgate_rehash_upgraded_total", Help: "Secure hashes re-derived with stronger parameters."},
	{ID: credgate.MetricRegistrationSuccess, Name: "credgate_registration_success_total", Help: "Created accounts."},
	{ID: credgate.MetricRegistrationRejected, Name: "credgate_registration_rejected_total", Help: "Registrations refused by policy or uniqueness."},
	{ID: credgate.MetricRegistrationRateLimited, Name: "credgate_registration_rate_limited_total", Help: "Registrations denied by the rate limiter."},
	{ID: credgate.MetricGeneralRateLimited, Name: "credgate_general_rate_limited_total", Help: "General endpoint-class denials."},
}
