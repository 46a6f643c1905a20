package http

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthHandler issues ops-API tokens.
type AuthHandler struct {
	jwtSecret []byte
	username  string
	password  string
	logger    *slog.Logger
}

func NewAuthHandler(logger *slog.Logger, jwtSecret, username, password string) *AuthHandler {
	return &AuthHandler{
		jwtSecret: []byte(jwtSecret),
		username:  username,
		password:  password,
		logger:    logger,
	}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// HandleLogin checks the configured ops credentials and returns a short-lived
// HS256 token.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest, h.logger)
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) == 1
	if !userOK || !passOK {
		h.logger.Warn("ops login rejected", "username", req.Username)
		writeJSONError(w, "Invalid credentials", http.StatusUnauthorized, h.logger)
		return
	}

	claims := jwt.MapClaims{
		"sub":   req.Username,
		"roles": []string{"support"},
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		h.logger.Error("failed to sign ops token", "error", err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError, h.logger)
		return
	}

	writeJSON(w, LoginResponse{Token: token}, http.StatusOK, h.logger)
}
