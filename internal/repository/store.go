package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store groups the repositories so a service can run several of them inside
// one transaction.
type Store interface {
	Users() UserRepository
	Categories() CategoryRepository
	Products() ProductRepository
	Inventory() InventoryRepository
	Carts() CartRepository
	Addresses() AddressRepository
	Orders() OrderRepository
	Outbox() OutboxRepository

	// WithinTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Calling WithinTx on a transactional Store reuses the open transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	db   *sql.DB
	conn DBTX
}

// NewStore creates a Store backed by db
func NewStore(db *sql.DB) Store {
	return &store{db: db, conn: db}
}

func (s *store) Users() UserRepository          { return NewUserRepository(s.conn) }
func (s *store) Categories() CategoryRepository { return NewCategoryRepository(s.conn) }
func (s *store) Products() ProductRepository    { return NewProductRepository(s.conn) }
func (s *store) Inventory() InventoryRepository { return NewInventoryRepository(s.conn) }
func (s *store) Carts() CartRepository          { return NewCartRepository(s.conn) }
func (s *store) Addresses() AddressRepository   { return NewAddressRepository(s.conn) }
func (s *store) Orders() OrderRepository        { return NewOrderRepository(s.conn) }
func (s *store) Outbox() OutboxRepository       { return NewOutboxRepository(s.conn) }

func (s *store) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&store{conn: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
