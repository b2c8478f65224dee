package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
)

const (
	CookieName = "session"

	accountIDKey = "account_id"
)

var (
	ErrEmptySecret     = errors.New("session secret must not be empty")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type Gate struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewGate(secret []byte, maxAge time.Duration) (*Gate, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	return &Gate{
		secret: append([]byte(nil), secret...),
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

func NewGateService(i do.Injector) (*Gate, error) {
	secret := do.MustInvokeNamed[string](i, "session-secret")
	maxAge := do.MustInvokeNamed[time.Duration](i, "session-max-age")

	return NewGate([]byte(secret), maxAge)
}

func (g *Gate) Issue(accountID string) (string, error) {
	now := g.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.maxAge)),
	})

	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// Authenticate returns the account ID the token was issued for.
func (g *Gate) Authenticate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) {
			return g.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}

	return claims.Subject, nil
}

func tokenFrom(c echo.Context) string {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader != "" {
		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}

		return token
	}

	cookie, err := c.Cookie(CookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}

func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := tokenFrom(c)
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, ErrUnauthenticated.Error())
			}

			accountID, err := g.Authenticate(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, ErrUnauthenticated.Error())
			}

			c.Set(accountIDKey, accountID)

			return next(c)
		}
	}
}

func AccountID(c echo.Context) string {
	accountID, _ := c.Get(accountIDKey).(string)

	return accountID
}
