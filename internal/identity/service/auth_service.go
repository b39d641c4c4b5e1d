package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	accountdomain "vibhanet-auth/backend/internal/account/domain"
	accountrepo "vibhanet-auth/backend/internal/account/repository"
	"vibhanet-auth/backend/internal/audit"
	"vibhanet-auth/backend/internal/logging"
	"vibhanet-auth/backend/internal/phone"
	"vibhanet-auth/backend/internal/ratelimit"
	"vibhanet-auth/backend/internal/security"
	sessiondomain "vibhanet-auth/backend/internal/session/domain"
	"vibhanet-auth/backend/internal/telemetry"
	telemetrydomain "vibhanet-auth/backend/internal/telemetry/domain"
)

// dummyPassword is hashed once and verified against when the phone is unknown, so
// unknown and known phones cost the same hashing work.
const dummyPassword = "vibhanet-auth-dummy-password"

// AccountRepo is the minimal account repository needed by the auth service.
type AccountRepo interface {
	GetByPhone(ctx context.Context, phone string) (*accountdomain.Account, error)
	Create(ctx context.Context, a *accountdomain.Account) error
	RecordLoginFailure(ctx context.Context, id string, policy accountdomain.LockoutPolicy, now time.Time) (accountdomain.FailureResult, error)
	ResetLoginFailures(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id string, hash []byte) error
}

// SessionStore is the session lifecycle used by the auth service.
type SessionStore interface {
	Create(ctx context.Context, accountID string) (*sessiondomain.Session, error)
	Validate(ctx context.Context, token string) (*sessiondomain.Principal, error)
	Revoke(ctx context.Context, token string) error
}

// RateLimiter consumes quota for a scoped subject.
type RateLimiter interface {
	AllowRule(scope ratelimit.Scope, subject string, r ratelimit.Rule) bool
	RetryAfter(key string) time.Duration
}

// PasswordHasher hashes and verifies passwords. Verify must return false for malformed hashes.
type PasswordHasher interface {
	Hash(password []byte) ([]byte, error)
	Verify(hash, password []byte) bool
	NeedsRehash(hash []byte) bool
}

// Metrics counts auth outcomes.
type Metrics interface {
	Inc(ctx context.Context, name, countryCode string)
}

// Deps holds the collaborators of AuthService. Audit, Metrics, Events and Log are optional.
type Deps struct {
	Accounts AccountRepo
	Sessions SessionStore
	Limiter  RateLimiter
	Hasher   PasswordHasher
	Audit    audit.AuditLogger
	Metrics  Metrics
	Events   telemetry.EventEmitter
	Log      logging.Logger
	// Now defaults to time.Now().UTC.
	Now func() time.Time
}

// SignupRequest is the raw signup input.
type SignupRequest struct {
	Phone    string
	Password string
	ClientIP string
}

// LoginRequest is the raw login input.
type LoginRequest struct {
	Phone    string
	Password string
	ClientIP string
}

// AuthService implements phone and password signup, login and logout.
type AuthService struct {
	accounts AccountRepo
	sessions SessionStore
	limiter  RateLimiter
	hasher   PasswordHasher
	audit    audit.AuditLogger
	metrics  Metrics
	events   telemetry.EventEmitter
	log      logging.Logger
	now      func() time.Time
	policy   Policy

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService returns an AuthService with the given dependencies and policy.
func NewAuthService(deps Deps, policy Policy) *AuthService {
	s := &AuthService{
		accounts: deps.Accounts,
		sessions: deps.Sessions,
		limiter:  deps.Limiter,
		hasher:   deps.Hasher,
		audit:    deps.Audit,
		metrics:  deps.Metrics,
		events:   deps.Events,
		log:      deps.Log,
		now:      deps.Now,
		policy:   policy,
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Policy returns the thresholds in effect.
func (s *AuthService) Policy() Policy {
	return s.policy
}

// Signup registers a new account and opens a session for it.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) Outcome {
	out := s.signup(ctx, req)
	s.logOutcome(ctx, "signup", out)
	return out
}

func (s *AuthService) signup(ctx context.Context, req SignupRequest) Outcome {
	if !s.limiter.AllowRule(ratelimit.ScopeSignupIP, req.ClientIP, s.policy.SignupPerIP) {
		return Outcome{
			Kind:       OutcomeRateLimited,
			Message:    MsgSignupRateLimited,
			Cause:      CauseIPLimit,
			RetryAfter: s.limiter.RetryAfter(ratelimit.Key(ratelimit.ScopeSignupIP, req.ClientIP)),
		}
	}
	canonical, out, ok := normalizePhone(req.Phone)
	if !ok {
		return out
	}
	if err := security.ValidatePassword(req.Password); err != nil {
		if errors.Is(err, security.ErrPasswordRequired) {
			return validation(MsgPasswordRequired, CauseMissingPassword)
		}
		return validation(MsgPasswordTooShort, CauseShortPassword)
	}
	cc, _ := phone.CountryCode(canonical)

	existing, err := s.accounts.GetByPhone(ctx, canonical)
	if err != nil {
		return internal(CauseStorage, err)
	}
	if existing != nil {
		s.record(ctx, telemetrydomain.EventSignupConflict, "", cc, CausePhoneTaken)
		return Outcome{Kind: OutcomeConflict, Message: MsgPhoneTaken, Cause: CausePhoneTaken}
	}
	hash, err := s.hasher.Hash([]byte(req.Password))
	if err != nil {
		return internal(CauseHashing, err)
	}
	now := s.now()
	acc := &accountdomain.Account{
		ID:                uuid.New().String(),
		Phone:             canonical,
		PasswordHash:      hash,
		CreatedAt:         now,
		PasswordUpdatedAt: now,
	}
	if err := acc.Validate(); err != nil {
		return internal(CauseStorage, err)
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, accountrepo.ErrPhoneTaken) {
			s.record(ctx, telemetrydomain.EventSignupConflict, "", cc, CausePhoneTaken)
			return Outcome{Kind: OutcomeConflict, Message: MsgPhoneTaken, Cause: CausePhoneTaken}
		}
		return internal(CauseStorage, err)
	}
	sess, err := s.sessions.Create(ctx, acc.ID)
	if err != nil {
		return internal(CauseSession, err)
	}
	s.record(ctx, telemetrydomain.EventSignupSuccess, acc.ID, cc, "")
	s.auditEvent(ctx, acc.ID, audit.ActionSignup, cc, "")
	return Outcome{Kind: OutcomeCreated, AccountID: acc.ID, Session: sess}
}

// Login verifies credentials and opens a session. Unknown phones and wrong passwords
// produce identical outcomes apart from the internal cause.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) Outcome {
	out := s.login(ctx, req)
	s.logOutcome(ctx, "login", out)
	return out
}

func (s *AuthService) login(ctx context.Context, req LoginRequest) Outcome {
	if !s.limiter.AllowRule(ratelimit.ScopeLoginIP, req.ClientIP, s.policy.LoginPerIP) {
		s.record(ctx, telemetrydomain.EventLoginRateLimited, "", "", CauseIPLimit)
		return Outcome{
			Kind:       OutcomeRateLimited,
			Message:    MsgLoginRateLimited,
			Cause:      CauseIPLimit,
			RetryAfter: s.limiter.RetryAfter(ratelimit.Key(ratelimit.ScopeLoginIP, req.ClientIP)),
		}
	}
	canonical, out, ok := normalizePhone(req.Phone)
	if !ok {
		return out
	}
	// An empty password is not rejected here; it fails verification and counts as a failure.
	cc, _ := phone.CountryCode(canonical)

	if !s.limiter.AllowRule(ratelimit.ScopeLoginPhone, canonical, s.policy.LoginPerPhone) {
		s.record(ctx, telemetrydomain.EventLoginRateLimited, "", cc, CausePhoneLimit)
		return Outcome{
			Kind:       OutcomeRateLimited,
			Message:    MsgLoginRateLimited,
			Cause:      CausePhoneLimit,
			RetryAfter: s.limiter.RetryAfter(ratelimit.Key(ratelimit.ScopeLoginPhone, canonical)),
		}
	}

	acc, err := s.accounts.GetByPhone(ctx, canonical)
	if err != nil {
		return internal(CauseStorage, err)
	}
	if acc == nil {
		s.burnVerify(req.Password)
		s.record(ctx, telemetrydomain.EventLoginFailure, "", cc, CauseUnknownPhone)
		s.auditEvent(ctx, "", audit.ActionLoginFailure, cc, CauseUnknownPhone)
		return invalidCredentials(CauseUnknownPhone, "")
	}

	now := s.now()
	if acc.IsLocked(now) {
		return s.locked(ctx, acc.ID, cc, CauseAccountLocked)
	}

	if !s.hasher.Verify(acc.PasswordHash, []byte(req.Password)) {
		res, err := s.accounts.RecordLoginFailure(ctx, acc.ID, s.policy.Lockout, now)
		if err != nil {
			return internal(CauseStorage, err)
		}
		if !res.Applied {
			return s.locked(ctx, acc.ID, cc, CauseLockedConcurrent)
		}
		if res.Locked(now) {
			return s.locked(ctx, acc.ID, cc, CauseThresholdReached)
		}
		s.record(ctx, telemetrydomain.EventLoginFailure, acc.ID, cc, CauseBadPassword)
		s.auditEvent(ctx, acc.ID, audit.ActionLoginFailure, cc, CauseBadPassword)
		return invalidCredentials(CauseBadPassword, acc.ID)
	}

	if err := s.accounts.ResetLoginFailures(ctx, acc.ID); err != nil {
		return internal(CauseStorage, err)
	}
	if s.hasher.NeedsRehash(acc.PasswordHash) {
		s.rehash(ctx, acc.ID, req.Password)
	}
	sess, err := s.sessions.Create(ctx, acc.ID)
	if err != nil {
		return internal(CauseSession, err)
	}
	s.record(ctx, telemetrydomain.EventLoginSuccess, acc.ID, cc, "")
	s.auditEvent(ctx, acc.ID, audit.ActionLoginSuccess, cc, "")
	return Outcome{Kind: OutcomeSuccess, Message: MsgLoginSuccess, AccountID: acc.ID, Session: sess}
}

// Logout revokes the session identified by token if there is one. It always ends in
// OutcomeLoggedOut; storage errors are logged and swallowed.
func (s *AuthService) Logout(ctx context.Context, token string) Outcome {
	out := Outcome{Kind: OutcomeLoggedOut}
	if token == "" {
		return out
	}
	p, err := s.sessions.Validate(ctx, token)
	if err != nil {
		s.log.Warn(ctx, "logout: session lookup failed", "error", err)
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		s.log.Warn(ctx, "logout: revoke failed", "error", err)
		return out
	}
	if p != nil {
		out.AccountID = p.AccountID
		s.auditEvent(ctx, p.AccountID, audit.ActionLogout, "", "")
	}
	s.logOutcome(ctx, "logout", out)
	return out
}

// CurrentAccount resolves the principal for a session token, or nil when the session is
// absent, revoked or expired.
func (s *AuthService) CurrentAccount(ctx context.Context, token string) (*sessiondomain.Principal, error) {
	return s.sessions.Validate(ctx, token)
}

func (s *AuthService) locked(ctx context.Context, accountID, cc, cause string) Outcome {
	s.record(ctx, telemetrydomain.EventLoginLocked, accountID, cc, cause)
	s.auditEvent(ctx, accountID, audit.ActionLoginLocked, cc, cause)
	return Outcome{
		Kind:      OutcomeLocked,
		Message:   LockedMessage(s.policy.Lockout.Duration),
		Cause:     cause,
		AccountID: accountID,
	}
}

// rehash upgrades a hash made with outdated parameters. Best-effort.
func (s *AuthService) rehash(ctx context.Context, accountID, password string) {
	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		s.log.Warn(ctx, "login: rehash failed", "account_id", accountID, "error", err)
		return
	}
	if err := s.accounts.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		s.log.Warn(ctx, "login: rehash not stored", "account_id", accountID, "error", err)
	}
}

// burnVerify spends one verification on a dummy hash.
func (s *AuthService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash([]byte(dummyPassword))
	})
	if s.dummyHash != nil {
		s.hasher.Verify(s.dummyHash, []byte(password))
	}
}

func (s *AuthService) record(ctx context.Context, name, accountID, cc, reason string) {
	if s.metrics != nil {
		s.metrics.Inc(ctx, name, cc)
	}
	telemetry.EmitAsync(s.events, s.log, &telemetrydomain.AuthEvent{
		Name:        name,
		AccountID:   accountID,
		CountryCode: cc,
		Reason:      reason,
		CreatedAt:   s.now(),
	})
}

func (s *AuthService) auditEvent(ctx context.Context, accountID, action, cc, reason string) {
	if s.audit == nil {
		return
	}
	s.audit.LogEvent(ctx, accountID, action, audit.Metadata(map[string]string{
		"country_code": cc,
		"reason":       reason,
	}))
}

func (s *AuthService) logOutcome(ctx context.Context, flow string, out Outcome) {
	args := []any{"flow", flow, "outcome", out.Kind.String()}
	if out.Cause != "" {
		args = append(args, "cause", out.Cause)
	}
	if out.AccountID != "" {
		args = append(args, "account_id", out.AccountID)
	}
	switch {
	case out.Kind == OutcomeInternal:
		s.log.Error(ctx, "auth flow failed", append(args, "error", out.Err)...)
	case out.OK():
		s.log.Info(ctx, "auth flow completed", args...)
	default:
		s.log.Warn(ctx, "auth flow rejected", args...)
	}
}

func normalizePhone(raw string) (string, Outcome, bool) {
	canonical, err := phone.Normalize(raw)
	if err != nil {
		if errors.Is(err, phone.ErrRequired) {
			return "", validation(MsgPhoneRequired, CauseMissingPhone), false
		}
		return "", validation(MsgPhoneInvalid, CauseInvalidPhone), false
	}
	return canonical, Outcome{}, true
}
