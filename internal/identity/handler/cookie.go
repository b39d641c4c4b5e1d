package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieManager writes and clears the session cookie.
type CookieManager struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// NewCookieManager returns a manager for an HttpOnly, SameSite=Lax cookie on path /.
func NewCookieManager(name string, secure bool, maxAge time.Duration) *CookieManager {
	return &CookieManager{Name: name, Secure: secure, MaxAge: maxAge}
}

// Set stores token with an absolute max-age equal to the session TTL.
func (m *CookieManager) Set(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear deletes the cookie on the client.
func (m *CookieManager) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Token returns the cookie value, or "" when absent.
func (m *CookieManager) Token(c *gin.Context) string {
	v, err := c.Cookie(m.Name)
	if err != nil {
		return ""
	}
	return v
}
