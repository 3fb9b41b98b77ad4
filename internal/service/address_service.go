package service

import (
	"context"
	"strings"
	"time"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"
	"github.com/Manoj-git-hub/ecommerce-project/internal/repository"

	"github.com/google/uuid"
)

// AddressInput is a new shipping address as submitted by its owner.
type AddressInput struct {
	Street     string `json:"street" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
}

type AddressService interface {
	ListAddresses(ctx context.Context, username string) ([]*domain.Address, error)
	AddAddress(ctx context.Context, username string, input AddressInput) (*domain.Address, error)
}

type addressService struct {
	store repository.Store
}

func NewAddressService(store repository.Store) AddressService {
	return &addressService{store: store}
}

func (s *addressService) ListAddresses(ctx context.Context, username string) ([]*domain.Address, error) {
	user, err := resolveUser(ctx, s.store.Users(), username)
	if err != nil {
		return nil, err
	}
	return s.store.Addresses().ListByUser(ctx, user.ID)
}

func (s *addressService) AddAddress(ctx context.Context, username string, input AddressInput) (*domain.Address, error) {
	user, err := resolveUser(ctx, s.store.Users(), username)
	if err != nil {
		return nil, err
	}

	address := &domain.Address{
		ID:         uuid.New(),
		UserID:     user.ID,
		Street:     strings.TrimSpace(input.Street),
		City:       strings.TrimSpace(input.City),
		State:      strings.TrimSpace(input.State),
		PostalCode: strings.TrimSpace(input.PostalCode),
		Country:    strings.TrimSpace(input.Country),
		CreatedAt:  time.Now().UTC(),
	}

	for field, value := range map[string]string{
		"street":      address.Street,
		"city":        address.City,
		"postal_code": address.PostalCode,
		"country":     address.Country,
	} {
		if value == "" {
			return nil, domain.ErrInvalidArgument.WithDetails(map[string]interface{}{"field": field, "reason": "required"})
		}
	}

	if err := s.store.Addresses().Create(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}
