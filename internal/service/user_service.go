package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenExpiration is the default lifetime of an issued access token.
const AccessTokenExpiration = 60 * time.Minute

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// UserService resolves the identities carried by bearer tokens. Sign-up and
// credential checks live with the external identity provider; this service
// only provisions the local user row and mints tokens for development.
type UserService interface {
	ResolveUser(ctx context.Context, username string) (*domain.User, error)
	Provision(ctx context.Context, username, email, role string) (*domain.User, error)
	IssueAccessToken(user *domain.User, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type userService struct {
	userRepo  repository.UserRepository
	jwtSecret string
}

// NewUserService creates a new instance of UserService
func NewUserService(userRepo repository.UserRepository, jwtSecret string) UserService {
	return &userService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
	}
}

func (s *userService) ResolveUser(ctx context.Context, username string) (*domain.User, error) {
	return resolveUser(ctx, s.userRepo, username)
}

// Provision returns the user with the given username, creating it first when
// it does not exist yet.
func (s *userService) Provision(ctx context.Context, username, email, role string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrInvalidArgument.WithDetails(map[string]interface{}{"field": "username"}).Wrap(errors.New("username is required"))
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, domain.ErrInvalidArgument.WithDetails(map[string]interface{}{"field": "role", "value": role})
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	// Usernames are case-sensitive, so the placeholder address keeps the case.
	if email == "" {
		email = username + "@localhost"
	} else {
		email = strings.ToLower(email)
	}
	now := time.Now().UTC()
	user := &domain.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		// Another request provisioned the same username first.
		if winner, findErr := s.userRepo.FindByUsername(ctx, username); findErr == nil {
			return winner, nil
		}
		return nil, err
	}
	return user, nil
}

// IssueAccessToken signs an HS256 token carrying the username and role claims.
func (s *userService) IssueAccessToken(user *domain.User, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = AccessTokenExpiration
	}
	now := time.Now()
	claims := &Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Username == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func resolveUser(ctx context.Context, users repository.UserRepository, username string) (*domain.User, error) {
	user, err := users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound.WithDetails(map[string]interface{}{"username": username})
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return user, nil
}
