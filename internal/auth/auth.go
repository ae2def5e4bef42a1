package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/npezzotti/taskpulse/internal/types"
)

const (
	DefaultTokenExpiration = time.Hour * 24
	TokenCookieKey         = "token"
	tokenQueryKey          = "token"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrNoIdentity   = errors.New("token has no subject")
)

// Claims is the canonical token shape. The user id is carried in "sub".
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.StandardClaims
}

type Verifier struct {
	signingKey []byte
	now        func() time.Time
}

func NewVerifier(signingKey []byte) *Verifier {
	return &Verifier{
		signingKey: signingKey,
		now:        time.Now,
	}
}

// Verify checks the signature and expiry of tokenString and returns the
// identity it carries.
func (v *Verifier) Verify(tokenString string) (types.Identity, error) {
	if tokenString == "" {
		return types.Identity{}, ErrMissingToken
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, v.keyFunc)
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return types.Identity{}, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return types.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return types.Identity{}, ErrInvalidToken
	}

	if claims.ExpiresAt == 0 {
		return types.Identity{}, fmt.Errorf("%w: missing exp claim", ErrInvalidToken)
	}

	if claims.Subject == "" {
		return types.Identity{}, ErrNoIdentity
	}

	return types.Identity{
		Id:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
	}, nil
}

// Issue mints a token for user that expires after exp.
func (v *Verifier) Issue(user types.Identity, exp time.Duration) (string, error) {
	if user.Id == "" {
		return "", ErrNoIdentity
	}

	now := v.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name:  user.Name,
		Email: user.Email,
		StandardClaims: jwt.StandardClaims{
			Subject:   user.Id,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(exp).Unix(),
		},
	})

	return token.SignedString(v.signingKey)
}

func (v *Verifier) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
	}

	return v.signingKey, nil
}

// TokenFromRequest returns the bearer credential from the Authorization
// header, the token query parameter, or the token cookie, in that order.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}

	if token := r.URL.Query().Get(tokenQueryKey); token != "" {
		return token
	}

	if c, err := r.Cookie(TokenCookieKey); err == nil {
		return c.Value
	}

	return ""
}
