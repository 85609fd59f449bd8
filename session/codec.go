package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// CookieName is the session cookie.
	CookieName = "tc_session"

	cookieTTL = 7 * 24 * time.Hour
)

type claims struct {
	CSRF     string `json:"csrf,omitempty"`
	Identity string `json:"idn,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs sessions into cookies and reads them back. It is the injected
// persistence capability of the Session contract; the state machine never
// touches HTTP or crypto directly.
type Codec struct {
	secret  []byte
	secure  bool
	nowTime func() time.Time
}

// CodecOption defines a function type to modify the Codec instance.
type CodecOption func(*Codec)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowTime = nowFunc
	}
}

// NewCodec creates a session codec. secure controls the cookie's Secure
// attribute and should be true everywhere except local development.
func NewCodec(secret string, secure bool, options ...CodecOption) (*Codec, error) {
	if len(secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	c := &Codec{
		secret:  []byte(secret),
		secure:  secure,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Load reads the session cookie from the request. A missing, malformed,
// tampered, or expired cookie yields a fresh anonymous session rather than
// an error: the visitor simply starts over.
func (c *Codec) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return &Session{}
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.nowTime))
	if err != nil || !token.Valid {
		return &Session{}
	}

	cl, ok := token.Claims.(*claims)
	if !ok {
		return &Session{}
	}

	return &Session{
		CSRFToken: cl.CSRF,
		Identity:  cl.Identity,
		id:        cl.ID,
	}
}

// Save flushes the session to the response. Handlers must call Save before
// writing status or body: a response must never claim success while the
// session mutation is still pending.
func (c *Codec) Save(w http.ResponseWriter, s *Session) error {
	if !s.Dirty() {
		return nil
	}

	if s.Destroyed() {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   c.secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
		return nil
	}

	now := c.nowTime()
	if s.id == "" {
		s.id = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		CSRF:     s.CSRFToken,
		Identity: s.Identity,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cookieTTL)),
		},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cookieTTL.Seconds()),
	})
	return nil
}
