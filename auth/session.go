package auth

import (
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/rpupo63/portfolio-dashboard-core/errs"
)

// Session holds the bearer credential for one dashboard instance. It is created
// by the caller and handed to the Gate and the API client, so tests can inject
// their own without touching shared state.
type Session struct {
	mu    sync.RWMutex
	token string
}

func NewSession(token string) *Session {
	return &Session{token: token}
}

// Token returns the current access token, empty when not logged in.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set replaces the access token.
func (s *Session) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// TokenSource adapts the session for oauth2.Transport. The token is read on
// every request, so a new login is visible to the next call.
func (s *Session) TokenSource() oauth2.TokenSource {
	return sessionTokenSource{s}
}

type sessionTokenSource struct {
	s *Session
}

func (ts sessionTokenSource) Token() (*oauth2.Token, error) {
	tok := ts.s.Token()
	if tok == "" {
		return nil, errs.NewMissingTokenError()
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// Claims describes the current token for logging. The signature is not checked
// here; the service does that.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Claims parses the current token without verifying it. Tokens that are not
// JWTs return an error.
func (s *Session) Claims() (Claims, error) {
	tok := s.Token()
	if tok == "" {
		return Claims{}, errs.NewMissingTokenError()
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, mc); err != nil {
		return Claims{}, err
	}

	var c Claims
	if sub, err := mc.GetSubject(); err == nil && sub != "" {
		c.Subject = sub
	} else if uid, ok := mc["user_id"]; ok {
		c.Subject = jsonScalar(uid)
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

func jsonScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
