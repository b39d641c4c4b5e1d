package service

import (
	"time"

	accountdomain "vibhanet-auth/backend/internal/account/domain"
	"vibhanet-auth/backend/internal/ratelimit"
)

// Policy holds the abuse-control thresholds used by the auth flows.
type Policy struct {
	SignupPerIP   ratelimit.Rule
	LoginPerIP    ratelimit.Rule
	LoginPerPhone ratelimit.Rule
	Lockout       accountdomain.LockoutPolicy
}

// DefaultPolicy returns the production defaults.
func DefaultPolicy() Policy {
	return Policy{
		SignupPerIP:   ratelimit.Rule{Limit: 3, Window: time.Minute},
		LoginPerIP:    ratelimit.Rule{Limit: 10, Window: time.Minute},
		LoginPerPhone: ratelimit.Rule{Limit: 5, Window: time.Minute},
		Lockout: accountdomain.LockoutPolicy{
			Threshold: 6,
			Duration:  15 * time.Minute,
		},
	}
}

// SweepInterval is the largest rate-limit window. Sweeping at that interval evicts every
// counter within one window of its expiry.
func (p Policy) SweepInterval() time.Duration {
	var d time.Duration
	for _, r := range []ratelimit.Rule{p.SignupPerIP, p.LoginPerIP, p.LoginPerPhone} {
		if r.Window > d {
			d = r.Window
		}
	}
	return d
}
