// Package index exports a dataset into a SQLite database so it can be
// queried with plain SQL. The schema enforces the dataset's foreign keys.
package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/kilupskalvis/cocokit/internal/dataset"
	_ "modernc.org/sqlite"
)

// Index represents the SQLite database.
type Index struct {
	db *sql.DB
}

// Open creates a new index connection with foreign keys enforced.
func Open(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps pragmas and in-memory databases consistent.
	db.SetMaxOpenConns(1)
	return &Index{db: db}, nil
}

// Close closes the database connection
func (x *Index) Close() error {
	return x.db.Close()
}

// DB returns the underlying database connection for ad hoc queries.
func (x *Index) DB() *sql.DB {
	return x.db
}

// Initialize creates the schema.
func (x *Index) Initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		supercategory TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY,
		file_name TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS annotations (
		id INTEGER PRIMARY KEY,
		image_id INTEGER NOT NULL,
		category_id INTEGER NOT NULL,
		area REAL NOT NULL,
		bbox_x REAL, bbox_y REAL, bbox_w REAL, bbox_h REAL,
		iscrowd INTEGER NOT NULL DEFAULT 0,
		segmentation JSON,
		FOREIGN KEY (image_id) REFERENCES images(id),
		FOREIGN KEY (category_id) REFERENCES categories(id)
	);

	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_annotations_image ON annotations(image_id);
	CREATE INDEX IF NOT EXISTS idx_annotations_category ON annotations(category_id);
	`
	if _, err := x.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Import replaces the index contents with ds in a single transaction. The
// dataset must pass its integrity check.
func (x *Index) Import(ctx context.Context, ds *dataset.Dataset) error {
	if err := ds.CheckIntegrity(); err != nil {
		return err
	}
	fp, err := ds.Fingerprint()
	if err != nil {
		return err
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"annotations", "images", "categories"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	catStmt, err := tx.PrepareContext(ctx, `INSERT INTO categories (id, name, supercategory) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer catStmt.Close()
	for _, c := range ds.Categories {
		if _, err := catStmt.ExecContext(ctx, c.ID, c.Name, c.Supercategory); err != nil {
			return fmt.Errorf("insert category %d: %w", c.ID, err)
		}
	}

	imgStmt, err := tx.PrepareContext(ctx, `INSERT INTO images (id, file_name, width, height) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer imgStmt.Close()
	for _, img := range ds.Images {
		if _, err := imgStmt.ExecContext(ctx, img.ID, img.FileName, img.Width, img.Height); err != nil {
			return fmt.Errorf("insert image %d: %w", img.ID, err)
		}
	}

	annStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO annotations (id, image_id, category_id, area, bbox_x, bbox_y, bbox_w, bbox_h, iscrowd, segmentation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer annStmt.Close()
	for _, a := range ds.Annotations {
		seg, err := json.Marshal(a.Segmentation)
		if err != nil {
			return fmt.Errorf("encode segmentation of annotation %d: %w", a.ID, err)
		}
		var bx, by, bw, bh sql.NullFloat64
		if box, err := a.Box(); err == nil {
			bx = sql.NullFloat64{Float64: box.X, Valid: true}
			by = sql.NullFloat64{Float64: box.Y, Valid: true}
			bw = sql.NullFloat64{Float64: box.W, Valid: true}
			bh = sql.NullFloat64{Float64: box.H, Valid: true}
		}
		if _, err := annStmt.ExecContext(ctx,
			a.ID, a.ImageID, a.CategoryID, a.Area,
			bx, by, bw, bh, a.IsCrowd, string(seg),
		); err != nil {
			return fmt.Errorf("insert annotation %d: %w", a.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO kv (key, value) VALUES ('fingerprint', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		fp,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Fingerprint returns the fingerprint of the last imported dataset.
func (x *Index) Fingerprint(ctx context.Context) (string, error) {
	var value string
	err := x.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = 'fingerprint'").Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
