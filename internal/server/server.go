// Package server is the gin HTTP surface: account, session and profile
// routes plus health and metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nuggetsync/nuggetauth"
	"github.com/nuggetsync/nuggetauth/internal/profile"
	"github.com/nuggetsync/nuggetauth/middleware"
	"go.uber.org/zap"
)

// Authenticator is the engine surface the routes use.
type Authenticator interface {
	middleware.Validator
	Register(ctx context.Context, username, password string) (nuggetauth.User, error)
	Login(ctx context.Context, username, password, clientIP string) (nuggetauth.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Ping(ctx context.Context) (time.Duration, error)
}

// Deps are the collaborators wired into the router. DBPing and Metrics are
// optional.
type Deps struct {
	Auth     Authenticator
	Profiles profile.Repository
	DBPing   func(ctx context.Context) error
	Metrics  http.Handler
	Logger   *zap.Logger
}

type handler struct {
	auth     Authenticator
	profiles profile.Repository
	dbPing   func(ctx context.Context) error
	logger   *zap.Logger
}

// New builds the router. Forwarding headers are not trusted; the client
// address is always the transport peer.
func New(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{
		auth:     d.Auth,
		profiles: d.Profiles,
		dbPing:   d.DBPing,
		logger:   logger,
	}

	r := gin.New()
	r.ForwardedByClientIP = false
	_ = r.SetTrustedProxies(nil)

	r.Use(requestID(), accessLog(logger), recovery(logger))

	r.GET("/health", h.health)
	r.GET("/ready", h.ready)
	r.POST("/register", h.register)
	r.POST("/login", h.login)

	authed := r.Group("/", middleware.GinGuard(d.Auth, logger))
	authed.POST("/logout", h.logout)
	authed.GET("/profiles", h.listProfiles)
	authed.POST("/profiles", h.createProfile)

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	return r
}
