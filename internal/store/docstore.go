package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"campattend/internal/model"
)

// Fields is one document's field set.
type Fields = map[string]any

// Document pairs a document id with its fields.
type Document struct {
	ID     string
	Fields Fields
}

// DocumentStore is the remote-store contract the core depends on: keyed reads,
// merge writes, field updates, append-only sub-collection inserts, and an
// unordered cross-collection scan. Merge semantics are last writer per field.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Fields, bool, error)
	Set(ctx context.Context, collection, id string, fields Fields, merge bool) error
	Update(ctx context.Context, collection, id string, fields Fields) error
	Add(ctx context.Context, collection string, fields Fields) (string, error)
	// QueryAll matches every collection whose final path segment equals name,
	// so "records" scans attendance/*/records across all camps.
	QueryAll(ctx context.Context, name string) ([]Document, error)
}

// PostgresStore keeps documents in a single jsonb-backed table. Sub-collections
// are encoded in the collection path ("attendance/ECCM038/logins").
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open connection.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Init creates the backing table if missing.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, id)
		)
	`)
	return err
}

// Get returns a document's fields, reporting absence without error.
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Fields, bool, error) {
	var raw []byte
	row := s.db.QueryRowContext(ctx, `
		SELECT fields FROM documents WHERE collection = $1 AND id = $2
	`, collection, id)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, false, err
	}
	return fields, true, nil
}

// Set writes a document. With merge, existing fields not named survive and
// named fields take the new value (last writer per field wins).
func (s *PostgresStore) Set(ctx context.Context, collection, id string, fields Fields, merge bool) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	assign := "EXCLUDED.fields"
	if merge {
		assign = "documents.fields || EXCLUDED.fields"
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET
			fields = %s,
			updated_at = NOW()
	`, assign), collection, id, raw)
	return err
}

// Update merges fields into an existing document and fails when it is absent.
func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET fields = fields || $3, updated_at = NOW()
		WHERE collection = $1 AND id = $2
	`, collection, id, raw)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("document %s/%s: %w", collection, id, model.ErrNotFound)
	}
	return nil
}

// Add inserts a new document with a generated id.
func (s *PostgresStore) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	id := uuid.NewString()
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields) VALUES ($1, $2, $3)
	`, collection, id, raw)
	return id, err
}

// QueryAll scans every collection named `name` at any path depth, unordered.
func (s *PostgresStore) QueryAll(ctx context.Context, name string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fields FROM documents
		WHERE collection = $1 OR collection LIKE '%/' || $1
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var raw []byte
		if err := rows.Scan(&doc.ID, &raw); err != nil {
			return nil, err
		}
		if doc.Fields, err = decodeFields(raw); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func decodeFields(raw []byte) (Fields, error) {
	var fields Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// ToFields converts a struct into a document field set via its JSON form.
func ToFields(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return decodeFields(raw)
}

// FromFields decodes a document field set into a struct via its JSON form.
func FromFields(fields Fields, v any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
