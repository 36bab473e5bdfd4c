// Package postgres stores collection rows in a single storefront_rows table.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/fjod/storefront-sync/internal/gateway"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const uniqueViolation = "23505"

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

func (c Credentials) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.DBName)
}

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Store{db: db}, nil
}

func (s *Store) RunMigrations() error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `owner_id, collection, identity, product_id, variant, quantity, name, unit_price, image, created_at, updated_at`

func (s *Store) Fetch(ctx context.Context, ownerID string, collection domain.Collection) ([]gateway.Row, error) {
	query := `SELECT ` + selectColumns + ` FROM storefront_rows
		WHERE owner_id = $1 AND collection = $2
		ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, ownerID, string(collection))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rows: %w", err)
	}
	defer rows.Close()

	result := []gateway.Row{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return result, nil
}

func (s *Store) Upsert(ctx context.Context, ownerID string, collection domain.Collection, identity string, payload gateway.Row) (gateway.Row, error) {
	variant, err := encodeVariant(payload.Variant)
	if err != nil {
		return gateway.Row{}, err
	}

	query := `INSERT INTO storefront_rows (owner_id, collection, identity, product_id, variant, quantity, name, unit_price, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_id, collection, identity) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			variant    = EXCLUDED.variant,
			quantity   = EXCLUDED.quantity,
			name       = EXCLUDED.name,
			unit_price = EXCLUDED.unit_price,
			image      = EXCLUDED.image,
			updated_at = now()
		RETURNING ` + selectColumns

	row, err := scanRow(s.db.QueryRowContext(ctx, query,
		ownerID, string(collection), identity,
		payload.ProductID, variant, payload.Quantity, payload.Name, payload.UnitPrice, payload.Image))
	if err != nil {
		return gateway.Row{}, fmt.Errorf("failed to upsert row: %w", err)
	}
	return row, nil
}

func (s *Store) Insert(ctx context.Context, ownerID string, collection domain.Collection, identity string, payload gateway.Row) (gateway.Row, error) {
	variant, err := encodeVariant(payload.Variant)
	if err != nil {
		return gateway.Row{}, err
	}

	query := `INSERT INTO storefront_rows (owner_id, collection, identity, product_id, variant, quantity, name, unit_price, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + selectColumns

	row, err := scanRow(s.db.QueryRowContext(ctx, query,
		ownerID, string(collection), identity,
		payload.ProductID, variant, payload.Quantity, payload.Name, payload.UnitPrice, payload.Image))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return gateway.Row{}, gateway.ErrConflict
		}
		return gateway.Row{}, fmt.Errorf("failed to insert row: %w", err)
	}
	return row, nil
}

func (s *Store) Delete(ctx context.Context, ownerID string, collection domain.Collection, identity string) error {
	query := `DELETE FROM storefront_rows WHERE owner_id = $1 AND collection = $2 AND identity = $3`
	if _, err := s.db.ExecContext(ctx, query, ownerID, string(collection), identity); err != nil {
		return fmt.Errorf("failed to delete row: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (gateway.Row, error) {
	var (
		row        gateway.Row
		collection string
		variant    []byte
	)
	err := sc.Scan(&row.OwnerID, &collection, &row.Identity, &row.ProductID, &variant,
		&row.Quantity, &row.Name, &row.UnitPrice, &row.Image, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return gateway.Row{}, fmt.Errorf("failed to scan row: %w", err)
	}
	row.Collection = domain.Collection(collection)
	if len(variant) > 0 {
		if err := json.Unmarshal(variant, &row.Variant); err != nil {
			return gateway.Row{}, fmt.Errorf("failed to decode variant: %w", err)
		}
	}
	return row, nil
}

func encodeVariant(v map[string]string) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode variant: %w", err)
	}
	return string(b), nil
}
