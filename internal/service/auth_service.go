package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cardledger/internal/config"
	"github.com/cardledger/internal/models"
	"github.com/cardledger/internal/repository"
	"github.com/cardledger/internal/session"
	"github.com/cardledger/pkg/crypto"
	"github.com/cardledger/pkg/keygen"
	"github.com/golang-jwt/jwt/v5"
)

const (
	usernameMinLen = 3
	usernameMaxLen = 20
	passwordMinLen = 6
)

// AuthService handles registration, login and per-request session checks
type AuthService struct {
	userRepo  *repository.UserRepository
	sessions  session.Store
	policy    session.Policy
	jwtConfig config.JWTConfig
	now       func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo *repository.UserRepository,
	sessions session.Store,
	policy session.Policy,
	jwtConfig config.JWTConfig,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		sessions:  sessions,
		policy:    policy,
		jwtConfig: jwtConfig,
		now:       time.Now,
	}
}

// RegisterRequest represents the registration request
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest represents the login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

// TokenResponse represents the JWT token response
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
	Remember    bool   `json:"remember"`
}

// JWTClaims represents the JWT claims. The registered ID (jti) is the
// server-side session id.
type JWTClaims struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Remember bool   `json:"remember"`
	jwt.RegisteredClaims
}

// SessionID returns the server-side session the token belongs to
func (c *JWTClaims) SessionID() string {
	return c.ID
}

// Register creates a user together with the default categories
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if n := utf8.RuneCountInString(username); n < usernameMinLen || n > usernameMaxLen {
		return nil, validationError("아이디는 3~20자로 입력해주세요.")
	}
	if utf8.RuneCountInString(req.Password) < passwordMinLen {
		return nil, validationError("비밀번호는 6자 이상 입력해주세요.")
	}

	exists, err := s.userRepo.ExistsByUsername(username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameTaken
	}

	passwordHash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
	}

	// a concurrent registration can still win the race past ExistsByUsername
	if err := s.userRepo.CreateAccount(user, models.DefaultCategoryNames); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	return user, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// equalizer returns a bcrypt hash that never matches, so unknown usernames
// cost the same as a wrong password
func equalizer() string {
	dummyHashOnce.Do(func() {
		h, err := crypto.HashPassword("cardledger-timing-equalizer")
		if err == nil {
			dummyHash = h
		}
	})
	return dummyHash
}

// Authorize verifies a username/password pair. Unknown users and wrong
// passwords are indistinguishable: both yield ErrInvalidCredentials.
func (s *AuthService) Authorize(username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			crypto.CheckPassword(password, equalizer())
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates a user, opens a server-side session and returns a token
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	user, err := s.Authorize(req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &session.Session{
		ID:           keygen.NewSessionID(),
		UserID:       user.ID,
		Mode:         session.ModeEphemeral,
		CreatedAt:    now,
		LastActivity: now,
	}
	if req.Remember {
		sess.Mode = session.ModeRemembered
	}

	if err := s.sessions.Save(ctx, sess, s.policy.TTL(sess)); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	return s.generateToken(user, sess)
}

// Authenticate validates the token and applies the session lifecycle policy.
// Expired sessions are removed from the store.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*JWTClaims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID())
	if err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		return nil, err
	}
	if sess != nil && sess.UserID != claims.UserID {
		return nil, ErrInvalidToken
	}

	if s.policy.Evaluate(sess, s.now()) == session.Expired {
		if sess != nil {
			if err := s.sessions.Delete(ctx, sess.ID); err != nil {
				return nil, fmt.Errorf("drop session: %w", err)
			}
		}
		return nil, ErrSessionExpired
	}

	// a logout racing this request wins: Touch never brings a record back
	if err := s.sessions.Touch(ctx, sess, s.policy.TTL(sess)); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("touch session: %w", err)
	}
	return claims, nil
}

// Logout discards the server-side session; the token stops working at once
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// ValidateToken validates a JWT token and returns the claims
func (s *AuthService) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtConfig.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid && claims.ID != "" {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// generateToken generates a JWT token for a user session
func (s *AuthService) generateToken(user *models.User, sess *session.Session) (*TokenResponse, error) {
	expiresIn := s.jwtConfig.TokenLifetime()
	now := s.now()

	claims := &JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		Remember: sess.Remembered(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.jwtConfig.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresIn:   int(expiresIn.Seconds()),
		Remember:    sess.Remembered(),
	}, nil
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	return s.userRepo.GetByID(id)
}

// TokenLifetime is the absolute lifetime of issued tokens
func (s *AuthService) TokenLifetime() time.Duration {
	return s.jwtConfig.TokenLifetime()
}
