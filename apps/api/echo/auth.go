package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/user"
)

const contextTokenKey = "userToken"

var NowFunc = time.Now // mockable

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64     `json:"oriat,omitempty"`
	Role         user.Role `json:"role"`
	Name         string    `json:"name,omitempty"`
	Identifier   string    `json:"identifier,omitempty"`
}

func (c Claims) Identity() user.Identity {
	return user.Identity{ID: c.Subject, Role: c.Role, Name: c.Name, Identifier: c.Identifier}
}

// Auth issues and verifies the API tokens.
type Auth struct {
	appName           string
	signingKey        []byte
	expiration        time.Duration
	refreshExpiration time.Duration
	revoker           core.TokenRevoker // optional
}

func NewAuth(conf *core.Config, revoker core.TokenRevoker) *Auth {
	return &Auth{
		appName:           conf.AppName,
		signingKey:        []byte(conf.SecretKey),
		expiration:        conf.Server.JWTExpirationDelta,
		refreshExpiration: conf.Server.JWTRefreshExpirationDelta,
		revoker:           revoker,
	}
}

// Middleware returns the JWT auth middleware followed by the revocation check.
func (a *Auth) Middleware() echo.MiddlewareFunc {
	jwtMw := middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    a.signingKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMw(func(ctx echo.Context) error {
			if a.revoker != nil {
				claims, err := getContextClaims(ctx)
				if err != nil {
					return err
				}
				revoked, err := a.revoker.IsRevoked(ctx.Request().Context(), claims.Id)
				if err != nil {
					return errors.Wrap(err, "checking token revocation")
				}
				if revoked {
					return errTokenRevoked
				}
			}
			return next(ctx)
		})
	}
}

// Claims returns the claims of a fresh token for id.
func (a *Auth) Claims(id user.Identity, origIat ...int64) *Claims {
	now := NowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    a.appName,
			Subject:   id.ID,
			ExpiresAt: now.Add(a.expiration).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Role:         id.Role,
		Name:         id.Name,
		Identifier:   id.Identifier,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func (a *Auth) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Token returns a signed token for id.
func (a *Auth) Token(id user.Identity) (string, error) {
	return a.GenerateToken(a.Claims(id))
}

// Revoke invalidates the token of claims until it expires.
func (a *Auth) Revoke(ctx echo.Context, claims Claims) error {
	if a.revoker == nil {
		return nil
	}
	return a.revoker.Revoke(ctx.Request().Context(), claims.Id, time.Unix(claims.ExpiresAt, 0))
}

// Refresh swaps the context token for a new one, as long as the refresh window is open.
func (a *Auth) Refresh(ctx echo.Context, id user.Identity) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.refreshExpiration)
	if NowFunc().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := a.GenerateToken(a.Claims(id, claims.OrigIssuedAt))
	if err != nil {
		return "", err
	}
	if err := a.Revoke(ctx, claims); err != nil {
		return "", errors.Wrap(err, "revoking refreshed token")
	}
	return token, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextIdentity(ctx echo.Context) (user.Identity, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.Identity{}, err
	}
	return claims.Identity(), nil
}
