package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Manoj-git-hub/ecommerce-project/internal/domain"

	"github.com/google/uuid"
)

// AddressRepository defines the interface for shipping address data access
type AddressRepository interface {
	Create(ctx context.Context, address *domain.Address) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error)
	// FindByIDAndUser returns domain.ErrAddressNotFound both for unknown ids
	// and for addresses owned by someone else.
	FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*domain.Address, error)
}

type addressRepository struct {
	db DBTX
}

func NewAddressRepository(db DBTX) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) Create(ctx context.Context, address *domain.Address) error {
	query := `
		INSERT INTO addresses (id, user_id, street, city, state, postal_code, country, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		address.ID,
		address.UserID,
		address.Street,
		address.City,
		address.State,
		address.PostalCode,
		address.Country,
		address.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}
	return nil
}

func (r *addressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	query := `
		SELECT id, user_id, street, city, COALESCE(state, ''), postal_code, country, created_at
		FROM addresses
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []*domain.Address{}
	for rows.Next() {
		address, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, address)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}
	return addresses, nil
}

func (r *addressRepository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*domain.Address, error) {
	query := `
		SELECT id, user_id, street, city, COALESCE(state, ''), postal_code, country, created_at
		FROM addresses
		WHERE id = $1 AND user_id = $2
	`

	address, err := scanAddress(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to find address: %w", err)
	}
	return address, nil
}

func scanAddress(row rowScanner) (*domain.Address, error) {
	address := &domain.Address{}
	err := row.Scan(
		&address.ID,
		&address.UserID,
		&address.Street,
		&address.City,
		&address.State,
		&address.PostalCode,
		&address.Country,
		&address.CreatedAt,
	)
	return address, err
}
