package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidCredentials is returned when the username is unknown or the
	// password does not match. The two causes are deliberately
	// indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInactiveAccount is returned when credentials are valid but the
	// account is disabled.
	ErrInactiveAccount = errors.New("inactive account")
)

// User is the resolved identity of the caller for one request. It is built
// from a store lookup and discarded at request end.
type User struct {
	ID          int64
	Username    string
	Email       string
	FullName    string
	IsActive    bool
	IsSuperuser bool
	CreatedAt   time.Time
}

// LoginResult is the successful login payload.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// dummyHash is a bcrypt digest of a throwaway value. Login verifies against
// it when the username is unknown so both rejection paths cost one bcrypt
// comparison.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// AuthService verifies credentials, issues tokens, and resolves bearer
// tokens back into users. It holds no per-request state.
type AuthService struct {
	users  UserRepository
	hasher *PasswordHasher
	tokens *TokenService
}

func NewAuthService(users UserRepository, hasher *PasswordHasher, tokens *TokenService) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens}
}

// Login authenticates a username/password pair and issues an access token.
// It performs exactly one store read, at most one real password
// verification, and at most one token issuance. Unknown-user and
// wrong-password both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	log := zerolog.Ctx(ctx)

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.hasher.Verify(password, dummyHash)
			log.Warn().Str("username", username).Str("outcome", "unknown_user").Msg("login failed")
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		log.Warn().Str("username", username).Str("outcome", "bad_password").Msg("login failed")
		return LoginResult{}, ErrInvalidCredentials
	}

	if !u.IsActive {
		log.Warn().Str("username", username).Str("outcome", "inactive").Msg("login failed")
		return LoginResult{}, ErrInactiveAccount
	}

	ttl := s.tokens.DefaultTTL()
	token, err := s.tokens.Issue(u.Username, u.ID, ttl)
	if err != nil {
		return LoginResult{}, err
	}

	log.Info().Str("username", username).Str("outcome", "success").Msg("user logged in")
	return LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(ttl.Seconds()),
	}, nil
}

// ResolveToken resolves a bearer token into the current user. A valid token
// whose subject no longer exists in the store is unauthenticated, not a
// failure. The call is a pure read.
func (s *AuthService) ResolveToken(ctx context.Context, tokenString string) (User, error) {
	claims, err := s.tokens.Validate(ctx, tokenString)
	if err != nil {
		return User{}, ErrTokenInvalid
	}

	u, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			zerolog.Ctx(ctx).Debug().Str("username", claims.Subject).Msg("token subject no longer exists")
			return User{}, ErrTokenInvalid
		}
		return User{}, err
	}

	return User{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
	}, nil
}
