package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	SessionKey    = "session_id"
	SessionCookie = "portal_session"
	sessionIssuer = "careerportal"
)

// SessionSigner issues and checks the HS256 token that carries a browser's
// portal session id.
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionSigner(secret string, ttl time.Duration) *SessionSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *SessionSigner) Sign(sessionID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    sessionIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *SessionSigner) Parse(raw string) (string, error) {
	claims, err := s.claims(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// stale reports whether less than half the token's lifetime remains.
func (s *SessionSigner) stale(claims *jwt.RegisteredClaims) bool {
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Time.Sub(s.now()) < s.ttl/2
}

func (s *SessionSigner) claims(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

// PortalSession makes sure every request carries a session id, minting a
// new one when the cookie is missing, expired or forged. A valid cookie past
// half its lifetime is re-issued for the same id, so a session only ends
// after SESSION_IDLE_TTL without requests.
func PortalSession(s *SessionSigner, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, err := c.Cookie(SessionCookie); err == nil && raw != "" {
			if claims, err := s.claims(raw); err == nil {
				if s.stale(claims) && !issue(c, s, claims.Subject, secure) {
					return
				}
				c.Set(SessionKey, claims.Subject)
				c.Next()
				return
			}
		}

		id := uuid.NewString()
		if !issue(c, s, id, secure) {
			return
		}
		c.Set(SessionKey, id)
		c.Next()
	}
}

func issue(c *gin.Context, s *SessionSigner, id string, secure bool) bool {
	signed, err := s.Sign(id)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, signed, int(s.ttl.Seconds()), "/", "", secure, true)
	return true
}
