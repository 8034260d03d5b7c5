package cartstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteBackend persists carts in a single SQLite file.
type SQLiteBackend struct {
	db *sql.DB
}

func OpenSQLite(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, unavailable("failed to open database", err)
	}
	// one writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, unavailable("failed to ping database", err)
	}

	b := &SQLiteBackend{db: db}
	if err := b.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) runMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(b.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Profile(profileID string) Store {
	return &sqliteStore{db: b.db, profileID: profileID}
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

type sqliteStore struct {
	db        *sql.DB
	profileID string
}

func (s *sqliteStore) Upsert(ctx context.Context, line domain.CartLine) error {
	query := `
		INSERT INTO cart_lines (profile_id, product_id, product_name, unit_price, quantity,
		                        variant_name, variant_value, image_ref, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP)
		ON CONFLICT (profile_id, product_id) DO UPDATE SET
			product_name  = excluded.product_name,
			unit_price    = excluded.unit_price,
			quantity      = excluded.quantity,
			variant_name  = excluded.variant_name,
			variant_value = excluded.variant_value,
			image_ref     = excluded.image_ref,
			updated_at    = excluded.updated_at
	`
	var variantName, variantValue sql.NullString
	if line.SelectedVariant != nil {
		variantName = sql.NullString{String: line.SelectedVariant.Name, Valid: true}
		variantValue = sql.NullString{String: line.SelectedVariant.Value, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		s.profileID,
		line.ProductID,
		line.ProductName,
		line.UnitPrice,
		line.Quantity,
		variantName,
		variantValue,
		line.ImageRef,
	)
	if err != nil {
		return unavailable("failed to upsert cart line", err)
	}
	return nil
}

func (s *sqliteStore) Remove(ctx context.Context, productID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE profile_id = $1 AND product_id = $2`,
		s.profileID, productID)
	if err != nil {
		return unavailable("failed to remove cart line", err)
	}
	return nil
}

func (s *sqliteStore) ListAll(ctx context.Context) ([]domain.CartLine, error) {
	query := `
		SELECT product_id, product_name, unit_price, quantity, variant_name, variant_value, image_ref
		FROM cart_lines
		WHERE profile_id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, s.profileID)
	if err != nil {
		return nil, unavailable("failed to query cart lines", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		var variantName, variantValue sql.NullString
		if err := rows.Scan(
			&l.ProductID,
			&l.ProductName,
			&l.UnitPrice,
			&l.Quantity,
			&variantName,
			&variantValue,
			&l.ImageRef,
		); err != nil {
			return nil, unavailable("failed to scan cart line", err)
		}
		if variantName.Valid {
			l.SelectedVariant = &domain.Variant{Name: variantName.String, Value: variantValue.String}
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("row iteration error", err)
	}
	return lines, nil
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE profile_id = $1`, s.profileID)
	if err != nil {
		return unavailable("failed to clear cart", err)
	}
	return nil
}
