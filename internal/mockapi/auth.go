package mockapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/errors"
)

// Claims are the token claims the mock backend issues and accepts.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

const claimsKey = "claims"

// IssueToken signs a development token for subject with secret.
func IssueToken(secret, subject, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", errors.Annotate(err, "signing token")
	}
	return tok, nil
}

func bearer(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// auth verifies bearer tokens when a secret is configured. Without one it
// runs open and only decodes whatever token is sent.
func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		token, ok := bearer(c)
		if len(s.secret) == 0 {
			if ok {
				claims := &Claims{}
				if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
					c.Set(claimsKey, claims)
				}
			}
			c.Next()
			return
		}

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{Detail: "Authorization header required"})
			return
		}
		claims := &Claims{}
		_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			s.logger.Debug().Err(err).Msg("rejecting token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{Detail: "Invalid or expired token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func (s *Server) me(c *gin.Context) {
	v, ok := c.Get(claimsKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, apiError{Detail: "Authentication failed"})
		return
	}
	claims := v.(*Claims)
	role := claims.Role
	if role == "" {
		role = "authenticated"
	}
	c.JSON(http.StatusOK, gin.H{"id": claims.Subject, "email": claims.Email, "role": role})
}
