// Package api wires together all HTTP routes for the portal gateway.
//
// Route grouping philosophy:
//   - The verification route (/verify/) is intentionally unauthenticated. It is
//     the target of the QR code printed on certificates, so anyone scanning one
//     must be able to reach it without credentials. It carries its own, tighter
//     rate-limit tier because it is the only surface exposed to anonymous
//     traffic.
//   - Credential routes (/portal/auth/login, /portal/auth/register) get the
//     strictest rate-limit tier to slow down password guessing.
//   - Everything else under /portal/ requires a session cookie and goes through
//     SessionAuthMiddleware, which resolves the cookie into the user snapshot
//     and the sealed platform credentials.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/certifypro/certportal/internal/api/authn"
	"github.com/certifypro/certportal/internal/api/certificates"
	"github.com/certifypro/certportal/internal/api/profiles"
	"github.com/certifypro/certportal/internal/api/requests"
	"github.com/certifypro/certportal/internal/audit"
	"github.com/certifypro/certportal/internal/certify"
	"github.com/certifypro/certportal/internal/config"
	"github.com/certifypro/certportal/internal/crypto"
	"github.com/certifypro/certportal/internal/jobs"
	"github.com/certifypro/certportal/internal/middleware"
	"github.com/certifypro/certportal/internal/platform"
	"github.com/certifypro/certportal/internal/safego"
	"github.com/certifypro/certportal/internal/session"
	"github.com/certifypro/certportal/internal/workflow"
)

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	sessionSweeper *jobs.SessionSweeper
	auditShipper   audit.Shipper
	rateLimiters   []*middleware.RateLimiter
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.sessionSweeper != nil {
		bg.sessionSweeper.Stop()
	}
	if bg.auditShipper != nil {
		if err := bg.auditShipper.Close(); err != nil {
			slog.Error("audit shipper close failed", "error", err)
		}
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router along with every service the
// routes depend on: the platform client, the session layer, the verification
// and workflow services, and the audit recorder.
func NewRouter(cfg *config.Config) (*gin.Engine, *BackgroundServices, error) {
	router := gin.New()
	bg := &BackgroundServices{}

	client, err := platform.NewClient(platform.Settings{
		BaseURL: cfg.Platform.BaseURL,
		Timeout: cfg.Platform.Timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("platform client: %w", err)
	}

	cipher, err := buildTokenCipher(cfg)
	if err != nil {
		return nil, nil, err
	}

	signer, err := session.NewSigner(cfg.Session.JWTSecret, cfg.Session.TTL, cfg.Server.DevMode)
	if err != nil {
		return nil, nil, fmt.Errorf("session signer: %w", err)
	}

	store := session.NewStore(cfg.Session.TTL)
	manager := session.NewManager(client, store, cipher, signer)

	bg.sessionSweeper = jobs.NewSessionSweeper(store, cfg.Session.SweepInterval)
	safego.Go(func() { bg.sessionSweeper.Start(context.Background()) })

	recorder, shipper, err := buildAuditRecorder(cfg)
	if err != nil {
		return nil, nil, err
	}
	bg.auditShipper = shipper

	verifier := certify.NewVerifier(client)
	classifier := certify.NewClassifier(time.Duration(cfg.Verification.ExpiringSoonDays) * 24 * time.Hour)
	tracker := workflow.NewTracker(client)

	cookie := authn.CookieSettings{
		Name:   cfg.Session.CookieName,
		MaxAge: int(cfg.Session.TTL.Seconds()),
		Secure: cfg.Session.CookieSecure && !cfg.Server.DevMode,
	}

	authHandler := authn.NewHandler(manager, recorder, cookie)
	certHandler := certificates.NewHandler(client, verifier, classifier, recorder)
	requestHandler := requests.NewHandler(tracker, client, recorder)
	profileHandler := profiles.NewHandler(client)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	generalLimit, authLimit, verifyLimit := buildRateLimiters(cfg, bg)

	// Health check endpoint
	router.GET("/health", healthCheckHandler(store))

	// Readiness check endpoint (includes a platform reachability probe)
	router.GET("/ready", readinessHandler(client))

	// API version
	router.GET("/version", versionHandler())

	// Public verification, the QR-code target. No session, its own rate tier,
	// and always HTTP 200 with validity carried in the body.
	public := router.Group("/verify")
	public.Use(verifyLimit)
	public.GET("/:verificationId", certHandler.Verify)

	// Credential endpoints on the strict tier.
	credentials := router.Group("/portal/auth")
	credentials.Use(authLimit)
	credentials.POST("/login", authHandler.Login)
	credentials.POST("/register", authHandler.Register)

	// Session lifecycle endpoints share the general tier. Logout and refresh
	// read the cookie themselves; only /me requires a resolved session.
	sessionRoutes := router.Group("/portal/auth")
	sessionRoutes.Use(generalLimit)
	sessionRoutes.POST("/logout", authHandler.Logout)
	sessionRoutes.POST("/refresh", authHandler.Refresh)
	sessionRoutes.GET("/me", middleware.SessionAuthMiddleware(manager, cfg.Session.CookieName), authHandler.Me)

	// Everything below requires a session.
	portal := router.Group("/portal")
	portal.Use(generalLimit)
	portal.Use(middleware.SessionAuthMiddleware(manager, cfg.Session.CookieName))

	certs := portal.Group("/certificates")
	certs.GET("/mine", certHandler.Mine)
	certs.GET("/issued", middleware.RequireRoles(platform.RoleIssuer, platform.RoleAdmin), certHandler.Issued)
	certs.GET("/:id", certHandler.Get)
	certs.POST("", middleware.RequireRoles(platform.RoleIssuer), certHandler.Issue)
	certs.DELETE("/:id", middleware.RequireRoles(platform.RoleIssuer, platform.RoleAdmin), certHandler.Revoke)

	reqs := portal.Group("/requests")
	reqs.POST("", middleware.RequireRoles(platform.RoleIndividual), requestHandler.Submit)
	reqs.GET("", middleware.RequireRoles(platform.RoleAdmin), requestHandler.All)
	reqs.GET("/mine", requestHandler.Mine)
	reqs.GET("/pending", middleware.RequireRoles(platform.RoleIssuer), requestHandler.Pending)
	reqs.POST("/:id/approve", middleware.RequireRoles(platform.RoleIssuer), requestHandler.Approve)
	reqs.POST("/:id/reject", middleware.RequireRoles(platform.RoleIssuer), requestHandler.Reject)

	profile := portal.Group("/profile")
	profile.PUT("", profileHandler.Update)
	profile.POST("/picture", profileHandler.UploadPicture)
	profile.DELETE("/picture", profileHandler.DeletePicture)

	portal.GET("/stats", profileHandler.Stats)

	return router, bg, nil
}

// buildTokenCipher derives the cipher sealing platform bearer tokens at rest.
// In dev mode without a passphrase, a throwaway key is generated; sessions then
// do not survive a restart, which is acceptable for local development only.
func buildTokenCipher(cfg *config.Config) (*crypto.TokenCipher, error) {
	if cfg.Session.CipherPassphrase == "" {
		if !cfg.Server.DevMode {
			return nil, fmt.Errorf("session.cipher_passphrase is required")
		}
		slog.Warn("no cipher passphrase configured; using a generated key (dev mode only)")
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("generate token cipher key: %w", err)
		}
		return crypto.NewTokenCipher(key)
	}
	cipher, err := crypto.DeriveTokenCipher(cfg.Session.CipherPassphrase, []byte(cfg.Session.CipherSalt), 0)
	if err != nil {
		return nil, fmt.Errorf("derive token cipher: %w", err)
	}
	return cipher, nil
}

// buildAuditRecorder constructs the audit recorder, attaching the webhook
// shipper when one is configured. A nil recorder is valid and records nothing.
func buildAuditRecorder(cfg *config.Config) (*audit.Recorder, audit.Shipper, error) {
	if !cfg.Audit.Enabled {
		return nil, nil, nil
	}
	if cfg.Audit.Webhook.URL == "" {
		return audit.NewRecorder(nil), nil, nil
	}
	shipper, err := audit.NewWebhookShipper(audit.WebhookConfig{
		URL:           cfg.Audit.Webhook.URL,
		Headers:       cfg.Audit.Webhook.Headers,
		Timeout:       time.Duration(cfg.Audit.Webhook.TimeoutSecs) * time.Second,
		BatchSize:     cfg.Audit.Webhook.BatchSize,
		FlushInterval: time.Duration(cfg.Audit.Webhook.FlushInterval) * time.Second,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("audit webhook shipper: %w", err)
	}
	return audit.NewRecorder(shipper), shipper, nil
}

// buildRateLimiters assembles the three tiers. When rate limiting is disabled
// every tier degrades to a pass-through handler so route registration stays
// uniform.
func buildRateLimiters(cfg *config.Config, bg *BackgroundServices) (general, auth, verify gin.HandlerFunc) {
	if !cfg.Security.RateLimiting.Enabled {
		noop := func(c *gin.Context) { c.Next() }
		return noop, noop, noop
	}

	generalCfg := middleware.DefaultRateLimitConfig()
	if cfg.Security.RateLimiting.RequestsPerMinute > 0 {
		generalCfg.RequestsPerMinute = cfg.Security.RateLimiting.RequestsPerMinute
	}
	if cfg.Security.RateLimiting.Burst > 0 {
		generalCfg.BurstSize = cfg.Security.RateLimiting.Burst
	}

	authCfg := middleware.AuthRateLimitConfig()
	if cfg.Security.RateLimiting.AuthRequestsPerMinute > 0 {
		authCfg.RequestsPerMinute = cfg.Security.RateLimiting.AuthRequestsPerMinute
	}

	verifyCfg := middleware.VerifyRateLimitConfig()
	if cfg.Security.RateLimiting.VerifyRequestsPerMinute > 0 {
		verifyCfg.RequestsPerMinute = cfg.Security.RateLimiting.VerifyRequestsPerMinute
	}

	generalLimiter := middleware.NewRateLimiter(generalCfg)
	authLimiter := middleware.NewRateLimiter(authCfg)
	verifyLimiter := middleware.NewRateLimiter(verifyCfg)
	bg.rateLimiters = append(bg.rateLimiters, generalLimiter, authLimiter, verifyLimiter)

	return middleware.RateLimitMiddleware(generalLimiter),
		middleware.RateLimitMiddleware(authLimiter),
		middleware.RateLimitMiddleware(verifyLimiter)
}

// healthCheckHandler returns the health status of the service
func healthCheckHandler(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"sessions": store.Len(),
			"time":     time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also checks that the platform API
// is reachable so that a Kubernetes readiness gate fails when every portal
// request would error anyway. The probe looks up a known-absent verification
// id: a not-found answer still proves connectivity without creating state.
func readinessHandler(lookup certify.Lookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if _, err := lookup.VerifyCertificate(c.Request.Context(), ".readiness-probe"); errors.Is(err, platform.ErrUnavailable) {
			checks["platform"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "platform API not reachable",
			})
			return
		}
		checks["platform"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// Version is the portal gateway release, overridable at build time via
// -ldflags "-X github.com/certifypro/certportal/internal/api.Version=...".
var Version = "0.1.0"

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		logRequest(c, latency, path, query)
	}
}

// logRequest logs a request as a structured slog record; the output format
// follows the global handler configured in telemetry.SetupLogger.
func logRequest(c *gin.Context, latency time.Duration, path, query string) {
	requestID, _ := c.Get(middleware.RequestIDKey)
	slog.LogAttrs(
		c.Request.Context(),
		slog.LevelInfo,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", fmt.Sprintf("%v", requestID)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// CORSMiddleware handles CORS. The portal authenticates with a cookie, so
// credentials are always allowed and the configured origins should list the
// frontend hosts explicitly in production.
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
