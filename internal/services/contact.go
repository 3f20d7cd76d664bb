package services

import (
	"context"
	"net/mail"
	"strings"

	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContactService struct {
	contacts repository.ContactStore
}

func NewContactService(contacts repository.ContactStore) *ContactService {
	return &ContactService{contacts: contacts}
}

type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (s *ContactService) Submit(ctx context.Context, in ContactInput) (*models.Contact, error) {
	c := &models.Contact{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Message: strings.TrimSpace(in.Message),
		Status:  models.ContactStatusNew,
	}
	if c.Name == "" || c.Email == "" || c.Message == "" {
		return nil, invalid("name, email and message are required")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return nil, invalid("invalid email address")
	}
	if err := s.contacts.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ContactService) List(ctx context.Context) ([]models.Contact, error) {
	return s.contacts.List(ctx)
}

func (s *ContactService) MarkRead(ctx context.Context, id primitive.ObjectID) (*models.Contact, error) {
	return s.contacts.SetStatus(ctx, id, models.ContactStatusRead)
}

func (s *ContactService) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.contacts.Delete(ctx, id)
}
