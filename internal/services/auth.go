package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/repository"
	"github.com/ooovooo/backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuthService struct {
	users  repository.UserStore
	tokens *utils.TokenManager
}

func NewAuthService(users repository.UserStore, tokens *utils.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

type RegisterInput struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password" validate:"required"`
	Language    string `json:"language"`
}

// Register creates a parent account. A taken email is a validation error
// and nothing is written.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, invalid("name, email and password are required")
	}
	if len(in.Password) < utils.MinPasswordLength {
		return nil, invalid(fmt.Sprintf("password must be at least %d characters", utils.MinPasswordLength))
	}

	lang := strings.ToLower(strings.TrimSpace(in.Language))
	if lang == "" {
		lang = models.Languages[0]
	}
	if !models.ValidLanguage(lang) {
		return nil, invalid("unsupported language")
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, invalid("email or phone number is already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:        in.Name,
		Email:       in.Email,
		Password:    hash,
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Role:        models.RoleParent,
		Language:    lang,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("email or phone number is already registered")
		}
		return nil, err
	}
	return user, nil
}

// Login matches identifier against email or phone number and returns the
// user with a fresh token.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*models.User, string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, "", invalid("email or phone number and password are required")
	}

	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrUnauthorized
		}
		return nil, "", err
	}

	ok, err := utils.VerifyPassword(password, user.Password)
	if err != nil || !ok {
		return nil, "", ErrUnauthorized
	}

	token, err := s.tokens.Generate(user.ID.Hex())
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return user, token, nil
}

// Authenticate resolves a bearer token to the stored user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}
