package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/DucAnhBoDoi/Music-App/core/auth"
	"github.com/DucAnhBoDoi/Music-App/logger"
)

const tokenTTL = 24 * time.Hour

// LoginHandler exchanges the operator password for a bearer token. The
// daemon has a single operator, so there is no username.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if h.cfg.OperatorHash == "" {
		respondError(w, http.StatusNotFound, "authentication is not configured")
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Password == "" {
		respondError(w, http.StatusBadRequest, "password is required")
		return
	}

	if !auth.CheckPasswordHash(req.Password, h.cfg.OperatorHash) {
		logger.Warn("login rejected")
		respondError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	token, err := auth.GenerateToken("operator", h.cfg.JWTSecret, tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logger.Info("operator logged in")
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// AuthMiddleware checks for a valid bearer token. When no operator password
// is configured the daemon is open and the check is skipped.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.OperatorHash == "" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, "authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		if _, err := auth.ParseToken(parts[1], h.cfg.JWTSecret); err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	}
}
