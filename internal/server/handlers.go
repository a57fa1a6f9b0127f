package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nuggetsync/nuggetauth"
	"github.com/nuggetsync/nuggetauth/internal"
	"github.com/nuggetsync/nuggetauth/internal/profile"
	"github.com/nuggetsync/nuggetauth/middleware"
	"go.uber.org/zap"
)

const readyTimeout = 2 * time.Second

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	if _, err := h.auth.Ping(ctx); err != nil {
		h.logger.Warn("readiness: session store", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "sessions"})
		return
	}
	if h.dbPing != nil {
		if err := h.dbPing(ctx); err != nil {
			h.logger.Warn("readiness: database", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "database"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, user)
	case errors.Is(err, nuggetauth.ErrInvalidUsername), errors.Is(err, nuggetauth.ErrPasswordPolicy):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, nuggetauth.ErrAccountExists):
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
	default:
		h.fail(c, "register failed", err)
	}
}

func (h *handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	ip, ok := internal.PeerIP(c.Request.RemoteAddr)
	if !ok {
		h.fail(c, "login without peer address", middleware.ErrNoPeerAddress)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Username, req.Password, ip)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, nuggetauth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
	case errors.Is(err, nuggetauth.ErrLoginRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
	default:
		h.fail(c, "login failed", err)
	}
}

func (h *handler) logout(c *gin.Context) {
	token, _ := middleware.BearerToken(c.GetHeader("Authorization"))
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.fail(c, "logout failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) listProfiles(c *gin.Context) {
	id, _ := middleware.IdentityFromGin(c)

	list, err := h.profiles.ListByUser(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, "list profiles failed", errors.Join(nuggetauth.ErrUserStoreUnavailable, err))
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) createProfile(c *gin.Context) {
	id, _ := middleware.IdentityFromGin(c)

	var in profile.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := in.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.profiles.Create(c.Request.Context(), id.UserID, in)
	if err != nil {
		h.fail(c, "create profile failed", errors.Join(nuggetauth.ErrUserStoreUnavailable, err))
		return
	}
	c.JSON(http.StatusCreated, p)
}

// fail writes a 503 or 500 for err. Details go to the log only.
func (h *handler) fail(c *gin.Context, msg string, err error) {
	status := middleware.StatusFor(err)
	fields := []zap.Field{zap.Error(err), zap.String("request_id", c.GetString(requestIDKey))}
	if status == http.StatusServiceUnavailable {
		h.logger.Warn(msg, fields...)
		c.JSON(status, gin.H{"error": "service unavailable"})
		return
	}
	h.logger.Error(msg, fields...)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
