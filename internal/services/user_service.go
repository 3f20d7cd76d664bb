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

type UserService struct {
	users repository.UserStore
}

func NewUserService(users repository.UserStore) *UserService {
	return &UserService{users: users}
}

// ProfileUpdate holds the editable profile fields; nil leaves a field as is.
type ProfileUpdate struct {
	Name           *string `json:"name"`
	PhoneNumber    *string `json:"phoneNumber"`
	Instagram      *string `json:"instagram"`
	Facebook       *string `json:"facebook"`
	Bio            *string `json:"bio"`
	EmergencyPhone *string `json:"emergencyPhone"`
	Language       *string `json:"language"`
}

func (s *UserService) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, in ProfileUpdate) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name cannot be empty")
		}
		user.Name = name
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*in.PhoneNumber)
	}
	if in.Instagram != nil {
		user.Instagram = strings.TrimSpace(*in.Instagram)
	}
	if in.Facebook != nil {
		user.Facebook = strings.TrimSpace(*in.Facebook)
	}
	if in.Bio != nil {
		user.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.EmergencyPhone != nil {
		user.EmergencyPhone = strings.TrimSpace(*in.EmergencyPhone)
	}
	if in.Language != nil {
		lang := strings.ToLower(strings.TrimSpace(*in.Language))
		if !models.ValidLanguage(lang) {
			return nil, invalid("unsupported language")
		}
		user.Language = lang
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("phone number is already registered")
		}
		return nil, err
	}
	return user, nil
}

// UpdateEmail changes the login email after re-checking the password.
func (s *UserService) UpdateEmail(ctx context.Context, id primitive.ObjectID, newEmail, password string) (*models.User, error) {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if newEmail == "" || password == "" {
		return nil, invalid("new email and password are required")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok, _ := utils.VerifyPassword(password, user.Password); !ok {
		return nil, invalid("incorrect password")
	}
	if newEmail == user.Email {
		return user, nil
	}
	if existing, err := s.users.FindByEmail(ctx, newEmail); err == nil && existing.ID != user.ID {
		return nil, invalid("email is already in use")
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	user.Email = newEmail
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("email is already in use")
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdatePassword(ctx context.Context, id primitive.ObjectID, current, next string) error {
	if current == "" || next == "" {
		return invalid("current and new password are required")
	}
	if len(next) < utils.MinPasswordLength {
		return invalid(fmt.Sprintf("password must be at least %d characters", utils.MinPasswordLength))
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if ok, _ := utils.VerifyPassword(current, user.Password); !ok {
		return invalid("current password is incorrect")
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = hash
	return s.users.Update(ctx, user)
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}
