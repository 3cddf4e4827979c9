package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// ErrTokenInvalid is returned for every token validation failure. Callers
// never learn whether the token was malformed, forged, or expired; the
// specific cause is only logged.
var ErrTokenInvalid = errors.New("invalid token")

// TokenClaims is the claim set embedded in issued access tokens.
type TokenClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService issues and validates signed, time-bound access tokens.
// Tokens are stateless: there is no server-side session and no revocation,
// expiry is the only way a token dies. The signing secret is immutable after
// construction.
type TokenService struct {
	secret     []byte
	method     jwt.SigningMethod
	defaultTTL time.Duration
}

// NewTokenService builds a token service from config. Only the symmetric
// HMAC family is supported.
func NewTokenService(cfg Config) (*TokenService, error) {
	var method jwt.SigningMethod
	switch cfg.Algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("empty token signing secret")
	}

	return &TokenService{
		secret:     []byte(cfg.SecretKey),
		method:     method,
		defaultTTL: cfg.TokenTTL(),
	}, nil
}

// DefaultTTL returns the configured access token lifetime.
func (s *TokenService) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Issue signs a token for the given subject. A non-positive ttl selects the
// configured default.
func (s *TokenService) Issue(subject string, userID int64, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := time.Now()
	claims := TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate decodes the token and verifies signature and expiry in one step.
// Every failure collapses into ErrTokenInvalid; the distinct causes are
// logged so operators can still tell them apart.
func (s *TokenService) Validate(ctx context.Context, tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{s.method.Alg()}))

	log := zerolog.Ctx(ctx)
	switch {
	case err != nil:
		log.Debug().Str("reason", tokenFailureReason(err)).Msg("token validation failed")
		return nil, ErrTokenInvalid
	case !token.Valid:
		log.Debug().Str("reason", "not valid").Msg("token validation failed")
		return nil, ErrTokenInvalid
	case claims.Subject == "":
		log.Debug().Str("reason", "missing subject claim").Msg("token validation failed")
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func tokenFailureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature mismatch"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return err.Error()
	}
}
