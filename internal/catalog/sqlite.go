package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fdnix/searchd/pkg/types"
)

var (
	// ErrNotFound is returned when a requested package doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteCatalog implements Catalog over a SQLite database file.
type SQLiteCatalog struct {
	db          *sql.DB
	vectorReady bool
	ftsReady    bool
	writable    bool
}

// openDatabase opens a SQLite database with appropriate settings.
func openDatabase(dbPath string, writable bool) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Single connection; the serving path is read-only and the write
	// path benefits from SQLite's single-writer model.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if writable {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	} else {
		if _, err := db.Exec("PRAGMA query_only=ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set read-only mode: %w", err)
		}
	}

	return db, nil
}

// Open opens an existing catalog for serving. The database file must
// exist and contain a packages table; vector capability is detected
// once here and never re-checked.
func Open(dbPath string) (*SQLiteCatalog, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", types.ErrCatalogNotFound, dbPath)
	}

	db, err := openDatabase(dbPath, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	c := &SQLiteCatalog{db: db}
	if err := c.Refresh(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Create opens a writable catalog, applying schema migrations. Used by
// the index build tooling and test fixtures; the serving path uses Open.
func Create(dbPath string) (*SQLiteCatalog, error) {
	db, err := openDatabase(dbPath, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteCatalog{db: db, writable: true, ftsReady: true}, nil
}

// Refresh re-detects catalog capabilities. The packages table is
// mandatory; embeddings are optional and their absence downgrades the
// catalog to lexical-only.
func (c *SQLiteCatalog) Refresh(ctx context.Context) error {
	if !c.tableExists(ctx, "packages") {
		return types.ErrCatalogMalformed
	}

	c.ftsReady = c.tableExists(ctx, "packages_fts")
	c.vectorReady = false

	if c.tableExists(ctx, "embeddings") {
		var count int
		err := c.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM embeddings WHERE vector IS NOT NULL").Scan(&count)
		if err == nil && count > 0 {
			c.vectorReady = true
		}
	}

	return nil
}

// tableExists checks sqlite_master for a table or virtual table.
func (c *SQLiteCatalog) tableExists(ctx context.Context, name string) bool {
	var found string
	err := c.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&found)
	return err == nil
}

// VectorReady reports whether vector queries can be served.
func (c *SQLiteCatalog) VectorReady() bool {
	return c.vectorReady
}

// Close closes the database connection.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// Health verifies the database handle is still usable.
func (c *SQLiteCatalog) Health(ctx context.Context) error {
	var one int
	if err := c.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("catalog health check: %w", err)
	}
	return nil
}

// Search operations

func (c *SQLiteCatalog) VectorSearch(ctx context.Context, vector []float32, limit int) ([]types.Package, error) {
	if !c.vectorReady || len(vector) == 0 || limit <= 0 {
		return []types.Package{}, nil
	}
	return searchVector(ctx, c.db, vector, limit)
}

func (c *SQLiteCatalog) LexicalSearch(ctx context.Context, query string, limit int) ([]types.Package, error) {
	if query == "" {
		return nil, types.ErrEmptyQuery
	}
	if limit <= 0 {
		return []types.Package{}, nil
	}
	return searchLexical(ctx, c.db, query, limit, c.ftsReady)
}

// Stats operations

func (c *SQLiteCatalog) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		VectorReady: c.vectorReady,
		FTSReady:    c.ftsReady,
		BuildMode:   BuildMode,
		Driver:      DriverName,
	}

	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM packages").Scan(&stats.PackageCount)
	if err != nil {
		return nil, fmt.Errorf("count packages: %w", err)
	}

	if c.tableExists(ctx, "embeddings") {
		err = c.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM embeddings WHERE vector IS NOT NULL").Scan(&stats.EmbeddingCount)
		if err != nil {
			return nil, fmt.Errorf("count embeddings: %w", err)
		}
	}

	var pageCount, pageSize int
	if err := c.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = c.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return stats, nil
}

// Write operations, used by the index build tooling and fixtures.
// The serving path never calls these.

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (c *SQLiteCatalog) querier() querier {
	return c.db
}

// upsertPackageWithQuerier is the internal implementation that uses a querier
func (c *SQLiteCatalog) upsertPackageWithQuerier(ctx context.Context, q querier, pkg *types.Package) error {
	query := `
		INSERT INTO packages (package_id, package_name, version, description, homepage, license, attribute_path, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(package_id) DO UPDATE SET
			package_name = excluded.package_name,
			version = excluded.version,
			description = excluded.description,
			homepage = excluded.homepage,
			license = excluded.license,
			attribute_path = excluded.attribute_path,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		pkg.PackageID, pkg.PackageName, pkg.Version, pkg.Description,
		pkg.Homepage, pkg.License, pkg.AttributePath, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert package: %w", err)
	}
	return nil
}

func (c *SQLiteCatalog) UpsertPackage(ctx context.Context, pkg *types.Package) error {
	return c.upsertPackageWithQuerier(ctx, c.querier(), pkg)
}

// upsertEmbeddingWithQuerier is the internal implementation that uses a querier
func (c *SQLiteCatalog) upsertEmbeddingWithQuerier(ctx context.Context, q querier, packageID string, vector []float32, provider, model string) error {
	query := `
		INSERT INTO embeddings (package_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(package_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
	`
	var blob interface{}
	if vector != nil {
		blob = serializeVector(vector)
	}
	_, err := q.ExecContext(ctx, query,
		packageID, blob, len(vector), provider, model, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

func (c *SQLiteCatalog) UpsertEmbedding(ctx context.Context, packageID string, vector []float32, provider, model string) error {
	return c.upsertEmbeddingWithQuerier(ctx, c.querier(), packageID, vector, provider, model)
}

// GetPackage retrieves one package by ID.
func (c *SQLiteCatalog) GetPackage(ctx context.Context, packageID string) (*types.Package, error) {
	query := `
		SELECT package_id, package_name, version, description, homepage, license, attribute_path
		FROM packages
		WHERE package_id = ?
	`
	var pkg types.Package
	err := c.db.QueryRowContext(ctx, query, packageID).Scan(
		&pkg.PackageID, &pkg.PackageName, &pkg.Version, &pkg.Description,
		&pkg.Homepage, &pkg.License, &pkg.AttributePath,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// Tx wraps a bulk-load transaction.
type Tx struct {
	tx      *sql.Tx
	catalog *SQLiteCatalog
}

// BeginTx starts a transaction for bulk catalog loading.
func (c *SQLiteCatalog) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, catalog: c}, nil
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

func (t *Tx) UpsertPackage(ctx context.Context, pkg *types.Package) error {
	return t.catalog.upsertPackageWithQuerier(ctx, t.tx, pkg)
}

func (t *Tx) UpsertEmbedding(ctx context.Context, packageID string, vector []float32, provider, model string) error {
	return t.catalog.upsertEmbeddingWithQuerier(ctx, t.tx, packageID, vector, provider, model)
}
