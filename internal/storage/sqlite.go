package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"repdir-backend/internal/model"
)

// SQLitePersister stores one row per representative. Save rewrites the
// table inside a single transaction.
type SQLitePersister struct {
	db     *sql.DB
	dbPath string
}

// NewSQLitePersister opens (creating if needed) the database at dbPath.
func NewSQLitePersister(dbPath string) (*SQLitePersister, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps writers serialized and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	p := &SQLitePersister{db: db, dbPath: dbPath}
	if err := p.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return p, nil
}

func (p *SQLitePersister) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS representatives (
		locality    TEXT    NOT NULL,
		position    INTEGER NOT NULL,
		name        TEXT    NOT NULL,
		designation TEXT    NOT NULL,
		phone       TEXT    NOT NULL DEFAULT '',
		email       TEXT    NOT NULL DEFAULT '',
		PRIMARY KEY (locality, position)
	);
	`
	_, err := p.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (p *SQLitePersister) Path() string { return p.dbPath }

// Load reads every row back into a directory, preserving position order.
func (p *SQLitePersister) Load(ctx context.Context) (model.Directory, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT locality, name, designation, phone, email
		FROM representatives
		ORDER BY locality, position`)
	if err != nil {
		return nil, fmt.Errorf("query representatives: %w", err)
	}
	defer rows.Close()

	dir := model.Directory{}
	for rows.Next() {
		var loc string
		var r model.Representative
		if err := rows.Scan(&loc, &r.Name, &r.Designation, &r.Phone, &r.Email); err != nil {
			return nil, fmt.Errorf("scan representative: %w", err)
		}
		dir[loc] = append(dir[loc], r)
	}
	return dir, rows.Err()
}

// Save replaces all rows with the contents of dir.
func (p *SQLitePersister) Save(ctx context.Context, dir model.Directory) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM representatives`); err != nil {
		return fmt.Errorf("clear representatives: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO representatives (locality, position, name, designation, phone, email)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, loc := range dir.Localities() {
		for i, r := range dir[loc] {
			if _, err = stmt.ExecContext(ctx, loc, i, r.Name, r.Designation, r.Phone, r.Email); err != nil {
				return fmt.Errorf("insert %s/%s: %w", loc, r.Name, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (p *SQLitePersister) Close() error {
	return p.db.Close()
}
