package domain

import "time"

// LockoutPolicy locks an account for Duration once Threshold failed logins accumulate.
// Only a successful login resets the count, so the first failure after a lock expires
// locks the account again.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// FailureResult is the persisted state after a failed login was recorded.
type FailureResult struct {
	FailedLoginCount int
	LockedUntil      *time.Time
	// Applied is false when the account was already locked and nothing was written.
	Applied bool
}

// Locked reports whether the result left the account locked at now.
func (r FailureResult) Locked(now time.Time) bool {
	return r.LockedUntil != nil && now.Before(*r.LockedUntil)
}

// ApplyFailure mutates a as one failed login at now and reports the new state.
// A locked account is left untouched. Repositories must produce the same result
// atomically; this is the reference for the rule.
func (p LockoutPolicy) ApplyFailure(a *Account, now time.Time) FailureResult {
	if a.IsLocked(now) {
		return FailureResult{FailedLoginCount: a.FailedLoginCount, LockedUntil: a.LockedUntil}
	}
	count := a.FailedLoginCount + 1
	var lockedUntil *time.Time
	if count >= p.Threshold {
		t := now.Add(p.Duration)
		lockedUntil = &t
	}
	at := now
	a.FailedLoginCount = count
	a.LastFailedLoginAt = &at
	a.LockedUntil = lockedUntil
	return FailureResult{FailedLoginCount: count, LockedUntil: lockedUntil, Applied: true}
}

// ApplySuccess clears the failure state regardless of its prior value.
func (p LockoutPolicy) ApplySuccess(a *Account) {
	a.FailedLoginCount = 0
	a.LastFailedLoginAt = nil
	a.LockedUntil = nil
}
