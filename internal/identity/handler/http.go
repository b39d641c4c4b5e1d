// Package handler exposes the auth flows over HTTP.
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	identityservice "vibhanet-auth/backend/internal/identity/service"
	"vibhanet-auth/backend/internal/logging"
	"vibhanet-auth/backend/internal/server/middleware"
	sessiondomain "vibhanet-auth/backend/internal/session/domain"
)

// RedirectAfterAuth is where the client navigates after signup or login.
const RedirectAfterAuth = "/dashboard"

const (
	msgSessionExpired = "Session expired"
	msgAuthRequired   = "Authentication required"
	msgInvalidBody    = "Invalid request body"
)

// AuthService is the auth orchestrator used by the handlers.
type AuthService interface {
	Signup(ctx context.Context, req identityservice.SignupRequest) identityservice.Outcome
	Login(ctx context.Context, req identityservice.LoginRequest) identityservice.Outcome
	Logout(ctx context.Context, token string) identityservice.Outcome
	CurrentAccount(ctx context.Context, token string) (*sessiondomain.Principal, error)
}

// Handler serves /auth/* and the session-protected routes.
type Handler struct {
	auth    AuthService
	cookies *CookieManager
	log     logging.Logger
}

// NewHandler returns a Handler. log may be nil.
func NewHandler(auth AuthService, cookies *CookieManager, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{auth: auth, cookies: cookies, log: log}
}

// credentials accepts any JSON type so non-string fields surface as missing values
// with the regular validation messages.
type credentials struct {
	Phone    any `json:"phone"`
	Password any `json:"password"`
}

// bindCredentials decodes the body. An empty body yields empty credentials; malformed
// JSON or an oversized body ends the request with 400.
func bindCredentials(c *gin.Context) (credentials, bool) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return credentials{}, false
	}
	return req, true
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	out := h.auth.Signup(ctx, identityservice.SignupRequest{
		Phone:    asString(req.Phone),
		Password: asString(req.Password),
		ClientIP: middleware.ClientIPFromContext(ctx),
	})
	if out.Kind != identityservice.OutcomeCreated {
		h.writeFailure(c, out)
		return
	}
	h.cookies.Set(c, out.Session.ID)
	c.JSON(http.StatusCreated, gin.H{"userId": out.AccountID, "redirectTo": RedirectAfterAuth})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	out := h.auth.Login(ctx, identityservice.LoginRequest{
		Phone:    asString(req.Phone),
		Password: asString(req.Password),
		ClientIP: middleware.ClientIPFromContext(ctx),
	})
	if out.Kind != identityservice.OutcomeSuccess {
		h.writeFailure(c, out)
		return
	}
	h.cookies.Set(c, out.Session.ID)
	c.JSON(http.StatusOK, gin.H{"message": out.Message, "redirectTo": RedirectAfterAuth})
}

// Logout handles POST /auth/logout. It always clears the cookie and answers 204.
func (h *Handler) Logout(c *gin.Context) {
	h.auth.Logout(c.Request.Context(), h.cookies.Token(c))
	h.cookies.Clear(c)
	c.Status(http.StatusNoContent)
}

// User handles GET /user. Requires RequireSession(true).
func (h *Handler) User(c *gin.Context) {
	p, ok := middleware.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgAuthRequired})
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": p.AccountID, "phone": p.Phone})
}

// RequireSession resolves the session cookie into a principal. Without a valid session
// the cookie is cleared and the request ends: API routes get 401 JSON, pages redirect to /.
func (h *Handler) RequireSession(api bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := h.cookies.Token(c)
		ctx := c.Request.Context()
		var p *sessiondomain.Principal
		if token != "" {
			var err error
			p, err = h.auth.CurrentAccount(ctx, token)
			if err != nil {
				h.log.Error(ctx, "session lookup failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": identityservice.MsgInternal})
				return
			}
		}
		if p == nil {
			h.cookies.Clear(c)
			if !api {
				c.Redirect(http.StatusFound, "/")
				c.Abort()
				return
			}
			msg := msgAuthRequired
			if token != "" {
				msg = msgSessionExpired
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}
		c.Request = c.Request.WithContext(middleware.WithPrincipal(ctx, p))
		c.Next()
	}
}

func (h *Handler) writeFailure(c *gin.Context, out identityservice.Outcome) {
	if out.Kind == identityservice.OutcomeRateLimited {
		c.Header("Retry-After", retryAfterHeader(out.RetryAfter))
	}
	c.JSON(StatusFor(out.Kind), gin.H{"error": out.Message})
}

// StatusFor maps an outcome kind to its HTTP status.
func StatusFor(k identityservice.OutcomeKind) int {
	switch k {
	case identityservice.OutcomeCreated:
		return http.StatusCreated
	case identityservice.OutcomeSuccess:
		return http.StatusOK
	case identityservice.OutcomeLoggedOut:
		return http.StatusNoContent
	case identityservice.OutcomeValidation:
		return http.StatusBadRequest
	case identityservice.OutcomeConflict:
		return http.StatusConflict
	case identityservice.OutcomeInvalidCredentials:
		return http.StatusUnauthorized
	case identityservice.OutcomeLocked:
		return http.StatusLocked
	case identityservice.OutcomeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func retryAfterHeader(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
