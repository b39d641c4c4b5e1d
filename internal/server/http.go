// Package server assembles the HTTP router and the gRPC health server.
package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	healthhandler "vibhanet-auth/backend/internal/health/handler"
	identityhandler "vibhanet-auth/backend/internal/identity/handler"
	"vibhanet-auth/backend/internal/logging"
	"vibhanet-auth/backend/internal/server/middleware"
)

// HTTPDeps holds the handlers and settings for the HTTP router.
type HTTPDeps struct {
	Auth   *identityhandler.Handler
	Health *healthhandler.Checker
	Log    logging.Logger
	// PublicDir holds index.html, dashboard.html and other static assets. Empty disables static serving.
	PublicDir string
	// AllowedOrigins for CORS. Empty reflects any origin with credentials.
	AllowedOrigins []string
	// TrustedProxies are IPs or CIDRs whose X-Forwarded-For is believed. Empty trusts none.
	TrustedProxies []string
}

// NewRouter returns the gin engine serving the auth API, protected pages and static files.
func NewRouter(deps HTTPDeps) (*gin.Engine, error) {
	log := deps.Log
	if log == nil {
		log = logging.Nop()
	}
	r := gin.New()
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(
		middleware.Recovery(log),
		middleware.AccessLog(log),
		cors.New(corsConfig(deps.AllowedOrigins)),
		middleware.BodyLimit(middleware.MaxBodyBytes),
		middleware.ClientIP(),
	)

	if deps.Health != nil {
		r.GET("/health", deps.Health.Liveness)
	}

	if deps.Auth != nil {
		auth := r.Group("/auth")
		{
			auth.POST("/signup", deps.Auth.Signup)
			auth.POST("/login", deps.Auth.Login)
			auth.POST("/logout", deps.Auth.Logout)
		}
		r.GET("/user", deps.Auth.RequireSession(true), deps.Auth.User)
		if deps.PublicDir != "" {
			dashboard := filepath.Join(deps.PublicDir, "dashboard.html")
			r.GET("/dashboard", deps.Auth.RequireSession(false), func(c *gin.Context) {
				c.File(dashboard)
			})
		}
	}

	r.NoRoute(staticOrNotFound(deps.PublicDir))
	return r, nil
}

// NewHTTPServer wraps the router with timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowCredentials = true
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	cleaned := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	if len(cleaned) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = cleaned
	}
	return cfg
}

// staticOrNotFound serves GET/HEAD requests from dir and answers everything else with 404 JSON.
// dashboard.html is only reachable through the session-protected /dashboard route.
func staticOrNotFound(dir string) gin.HandlerFunc {
	var files http.Handler
	if dir != "" {
		files = http.FileServer(gin.Dir(dir, false))
	}
	return func(c *gin.Context) {
		if files != nil && (c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead) {
			if exists(dir, c.Request.URL.Path) {
				files.ServeHTTP(c.Writer, c.Request)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	}
}

func exists(dir, urlPath string) bool {
	clean := filepath.Clean("/" + urlPath)
	if clean == "/" {
		clean = "/index.html"
	}
	if clean == "/dashboard.html" {
		return false
	}
	f, err := gin.Dir(dir, false).Open(clean)
	if err != nil {
		return false
	}
	defer f.Close()
	st, err := f.Stat()
	return err == nil && !st.IsDir()
}
