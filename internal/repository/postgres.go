package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresStore persists the receipt history and the catalog.
// Both Replace operations swap the full list inside one transaction,
// so readers never observe a partially applied write.
type PostgresStore struct {
	db *sql.DB

	receiptWatch *broadcaster[[]domain.Receipt]
	catalogWatch *broadcaster[[]domain.CatalogItem]
}

func NewPostgresStore(cred *Credentials) (*PostgresStore, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresStore{
		db:           db,
		receiptWatch: newBroadcaster[[]domain.Receipt](),
		catalogWatch: newBroadcaster[[]domain.CatalogItem](),
	}, nil
}

func (s *PostgresStore) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{
		MigrationsTable: "pos_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (s *PostgresStore) Receipts(ctx context.Context) ([]domain.Receipt, error) {
	query := `SELECT id, buyer_name, payment_method, status, lines, created_at
	          FROM receipts ORDER BY position`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []domain.Receipt
	for rows.Next() {
		var rec receiptRecord
		var linesJSON []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.BuyerName,
			&rec.PaymentMethod,
			&rec.Status,
			&linesJSON,
			&rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan receipt row: %w", err)
		}
		if err := json.Unmarshal(linesJSON, &rec.Lines); err != nil {
			return nil, fmt.Errorf("unmarshal receipt lines: %w", err)
		}
		receipt, err := receiptFromRecord(rec)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return receipts, nil
}

func (s *PostgresStore) ReplaceReceipts(ctx context.Context, receipts []domain.Receipt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace receipts: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM receipts`); err != nil {
		return fmt.Errorf("clear receipts: %w", err)
	}

	query := `INSERT INTO receipts (id, buyer_name, payment_method, status, lines, created_at, position)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, receipt := range receipts {
		rec := receiptToRecord(receipt)
		linesJSON, err := json.Marshal(rec.Lines)
		if err != nil {
			return fmt.Errorf("marshal receipt lines: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query,
			rec.ID,
			rec.BuyerName,
			rec.PaymentMethod,
			rec.Status,
			linesJSON,
			rec.Timestamp,
			i,
		); err != nil {
			return fmt.Errorf("insert receipt %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace receipts: %w", err)
	}

	s.receiptWatch.publish(cloneReceipts(receipts))
	return nil
}

func (s *PostgresStore) WatchReceipts(ctx context.Context) <-chan []domain.Receipt {
	return s.receiptWatch.subscribe(ctx)
}

func (s *PostgresStore) CatalogItems(ctx context.Context) ([]domain.CatalogItem, error) {
	query := `SELECT name, unit_price, variants FROM catalog_items ORDER BY position`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query catalog items: %w", err)
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		var rec catalogItemRecord
		var variantsJSON []byte
		if err := rows.Scan(&rec.Name, &rec.UnitPrice, &variantsJSON); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		if err := json.Unmarshal(variantsJSON, &rec.Variants); err != nil {
			return nil, fmt.Errorf("unmarshal item variants: %w", err)
		}
		item, err := catalogItemFromRecord(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

func (s *PostgresStore) ReplaceCatalogItems(ctx context.Context, items []domain.CatalogItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace catalog: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_items`); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}

	query := `INSERT INTO catalog_items (name, unit_price, variants, position) VALUES ($1, $2, $3, $4)`
	for i, item := range items {
		rec := catalogItemToRecord(item)
		variantsJSON, err := json.Marshal(rec.Variants)
		if err != nil {
			return fmt.Errorf("marshal item variants: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, rec.Name, rec.UnitPrice, variantsJSON, i); err != nil {
			return fmt.Errorf("insert catalog item %s: %w", rec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace catalog: %w", err)
	}

	s.catalogWatch.publish(cloneCatalog(items))
	return nil
}

func (s *PostgresStore) WatchCatalogItems(ctx context.Context) <-chan []domain.CatalogItem {
	return s.catalogWatch.subscribe(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
