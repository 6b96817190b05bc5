package identity

import (
	"errors"
	"sync"

	"github.com/golang-jwt/jwt/v4"
)

// Identity is the signed-in user. Key is the unique owner key (an email).
type Identity struct {
	Key         string
	DisplayName string
}

// Provider exposes the current identity; ok is false when nobody is signed in.
type Provider interface {
	Current() (Identity, bool)
}

// Session is a mutable Provider for a single client session.
type Session struct {
	mtx     sync.RWMutex
	current *Identity
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) SignIn(id Identity) error {
	if id.Key == "" {
		return ErrEmptyKey
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.current = &id
	return nil
}

func (s *Session) SignOut() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.current = nil
}

func (s *Session) Current() (Identity, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.current == nil {
		return Identity{}, false
	}
	return *s.current, true
}

// Static always reports the same identity. The zero value means signed out.
type Static Identity

func (s Static) Current() (Identity, bool) {
	if s.Key == "" {
		return Identity{}, false
	}
	return Identity(s), true
}

var (
	ErrEmptyKey     = errors.New("identity key is empty")
	ErrInvalidToken = errors.New("invalid identity token")
)

// Claims carried by identity tokens.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 token signed with secret and returns the identity it names.
func ParseToken(token string, secret []byte) (Identity, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return Identity{}, errors.Join(ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Email == "" {
		return Identity{}, ErrEmptyKey
	}
	return Identity{Key: claims.Email, DisplayName: claims.Name}, nil
}

// IssueToken signs an HS256 identity token. It exists for local tooling and tests.
func IssueToken(id Identity, secret []byte, claims jwt.RegisteredClaims) (string, error) {
	if id.Key == "" {
		return "", ErrEmptyKey
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email:            id.Key,
		Name:             id.DisplayName,
		RegisteredClaims: claims,
	})
	return tok.SignedString(secret)
}
