package pkg

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrRefreshExpired = errors.New("refresh expired")
	ErrRefreshInvalid = errors.New("refresh invalid")
)

const (
	AccessTTL  = time.Minute * 30
	RefreshTTL = time.Hour * 24

	subjectAccess  = "access"
	subjectRefresh = "refresh"
)

type Claims struct {
	PersonID uint64 `json:"person_id"`
	jwt.RegisteredClaims
}

type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenIssuer 签发和校验 HS256 token，密钥来自配置
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
}

func NewTokenIssuer(accessSecret, refreshSecret string) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		now:           time.Now,
	}
}

func (t *TokenIssuer) GeneratePair(personID uint64) (*Pair, error) {
	now := t.now()
	access, err := t.sign(personID, subjectAccess, now, AccessTTL, t.accessSecret)
	if err != nil {
		return nil, err
	}
	refresh, err := t.sign(personID, subjectRefresh, now, RefreshTTL, t.refreshSecret)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// ParseAccess 解析 access
func (t *TokenIssuer) ParseAccess(tokenStr string) (*Claims, error) {
	claims, err := t.parse(tokenStr, t.accessSecret, subjectAccess)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Refresh 用 refresh token 换一对新 token
func (t *TokenIssuer) Refresh(refreshToken string) (*Pair, error) {
	claims, err := t.parse(refreshToken, t.refreshSecret, subjectRefresh)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrRefreshExpired
	case err != nil:
		return nil, ErrRefreshInvalid
	}
	return t.GeneratePair(claims.PersonID)
}

func (t *TokenIssuer) sign(personID uint64, subject string, now time.Time, ttl time.Duration, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		PersonID: personID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   subject,
		},
	})
	return token.SignedString(secret)
}

func (t *TokenIssuer) parse(tokenStr string, secret []byte, subject string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithSubject(subject), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
