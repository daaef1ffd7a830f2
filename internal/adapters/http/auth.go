package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/parleyhq/parley/internal/domain"
)

const tokenTTL = 7 * 24 * time.Hour

type identityClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func issueToken(secret string, user *domain.User) (string, error) {
	claims := identityClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, token string) (*identityClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &identityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*identityClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// AuthRequired resolves the caller's identity from a bearer token, a
// token query parameter (websocket clients cannot set headers), or the
// cookie session written by the guest handler.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || token == c.GetHeader("Authorization") {
			token = c.Query("token")
		}
		if token != "" {
			claims, err := parseToken(secret, token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.Set("user_id", claims.Subject)
			c.Set("username", claims.Username)
			c.Next()
			return
		}

		if v, ok := c.Get(sessions.DefaultKey); ok {
			if session, ok := v.(sessions.Session); ok {
				if userID, ok := session.Get("user_id").(string); ok && userID != "" {
					c.Set("user_id", userID)
					if username, ok := session.Get("username").(string); ok {
						c.Set("username", username)
					}
					c.Next()
					return
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
}

type guestRequest struct {
	Name string `json:"name" binding:"required"`
}

// handleGuest mints a guest identity: a signed token for API clients
// plus a cookie session for browsers.
func (a *API) handleGuest(c *gin.Context) {
	var req guestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid name"})
		return
	}
	user, err := domain.NewGuest(req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := issueToken(a.Cfg.Secret, user)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", string(user.ID))
	session.Set("username", user.Username)
	if err := session.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}
