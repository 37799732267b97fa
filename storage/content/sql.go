package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/indieinfra/quill/config"
	"github.com/indieinfra/quill/micropub"
	storageutil "github.com/indieinfra/quill/storage/util"
)

type placeholderStyle int

const (
	placeholderQuestion placeholderStyle = iota
	placeholderDollar
)

// SQLStore persists documents as JSON rows in a relational table. Supported
// drivers are postgres (via pgx stdlib) and mysql.
type SQLStore struct {
	db          *sql.DB
	table       string
	placeholder placeholderStyle
	publicURL   string
}

func NewSQLStore(cfg *config.SQLContentStrategy) (*SQLStore, error) {
	store, err := newSQLStoreWithDB(cfg, nil)
	if err != nil {
		return nil, err
	}

	driverName, err := resolveSQLDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, err
	}

	store.db = db

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// newSQLStoreWithDB wires a store onto an existing handle; tests use it to
// inject a mock.
func newSQLStoreWithDB(cfg *config.SQLContentStrategy, db *sql.DB) (*SQLStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("content sql config is nil")
	}

	prefix := "quill"
	if cfg.TablePrefix != nil {
		prefix = *cfg.TablePrefix
	}

	table := "content"
	if prefix != "" {
		table = prefix + "_content"
	}

	placeholder, err := detectPlaceholderStyle(cfg.Driver)
	if err != nil {
		return nil, err
	}

	return &SQLStore{
		db:          db,
		table:       table,
		placeholder: placeholder,
		publicURL:   storageutil.NormalizeBaseURL(cfg.PublicUrl),
	}, nil
}

func resolveSQLDriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "postgres":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", driver)
	}
}

func detectPlaceholderStyle(driver string) (placeholderStyle, error) {
	driverName, err := resolveSQLDriverName(driver)
	if err != nil {
		return placeholderQuestion, err
	}

	if driverName == "pgx" {
		return placeholderDollar, nil
	}

	return placeholderQuestion, nil
}

func (cs *SQLStore) initSchema(ctx context.Context) error {
	_, err := cs.db.ExecContext(ctx, cs.schemaQuery())
	return err
}

func (cs *SQLStore) schemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
slug VARCHAR(255) PRIMARY KEY,
url TEXT NOT NULL,
doc TEXT NOT NULL,
deleted BOOLEAN NOT NULL DEFAULT FALSE,
updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, cs.table)
}

func (cs *SQLStore) Create(ctx context.Context, doc micropub.Document) (string, error) {
	slug, err := ExtractSlug(doc)
	if err != nil {
		return "", err
	}

	url := cs.publicURL + slug

	payload, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	if _, err := cs.db.ExecContext(ctx, cs.insertQuery(), slug, url, string(payload), false); err != nil {
		return "", err
	}

	return url, nil
}

func (cs *SQLStore) Update(ctx context.Context, url string, replacements map[string][]any, additions map[string][]any, deletions any) (string, error) {
	oldSlug, err := storageutil.SlugFromURL(url)
	if err != nil {
		return url, err
	}

	doc, err := cs.getDocBySlug(ctx, oldSlug)
	if err != nil {
		return url, err
	}

	applyMutations(doc, replacements, additions, deletions)

	newSlug := oldSlug
	if shouldRecomputeSlug(replacements, additions) {
		proposed, err := computeNewSlug(doc, replacements)
		if err != nil {
			return url, err
		}

		// Collision checking happens inside the transaction to avoid a
		// TOCTOU race; this is just the proposal.
		newSlug = proposed
		doc.Properties["slug"] = []any{newSlug}
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return url, err
	}

	newURL := cs.publicURL + newSlug

	tx, err := cs.db.BeginTx(ctx, nil)
	if err != nil {
		return url, err
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Printf("unexpected error during transaction rollback in Update: %v", rbErr)
		}
	}()

	if newSlug != oldSlug {
		finalSlug, err := cs.ensureUniqueSlugInTx(ctx, tx, newSlug, oldSlug)
		if err != nil {
			return url, err
		}

		if finalSlug != newSlug {
			newSlug = finalSlug
			newURL = cs.publicURL + newSlug
			doc.Properties["slug"] = []any{newSlug}

			payload, err = json.Marshal(doc)
			if err != nil {
				return url, err
			}
		}

		deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE slug = %s", cs.table, cs.placeholderFor(1))
		if _, err := tx.ExecContext(ctx, deleteQuery, oldSlug); err != nil {
			return url, err
		}

		if _, err := tx.ExecContext(ctx, cs.insertQuery(), newSlug, newURL, string(payload), deletedFlag(doc)); err != nil {
			return url, err
		}
	} else {
		if _, err := tx.ExecContext(ctx, cs.updateQuery(), string(payload), deletedFlag(doc), oldSlug); err != nil {
			return url, err
		}
	}

	if err := tx.Commit(); err != nil {
		return url, err
	}

	return newURL, nil
}

func (cs *SQLStore) Delete(ctx context.Context, url string) error {
	_, err := cs.setDeletedStatus(ctx, url, true)
	return err
}

func (cs *SQLStore) Undelete(ctx context.Context, url string) (string, bool, error) {
	newURL, err := cs.setDeletedStatus(ctx, url, false)
	return newURL, false, err
}

func (cs *SQLStore) Get(ctx context.Context, url string) (*micropub.Document, error) {
	slug, err := storageutil.SlugFromURL(url)
	if err != nil {
		return nil, err
	}

	return cs.getDocBySlug(ctx, slug)
}

func (cs *SQLStore) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	row := cs.db.QueryRowContext(ctx, cs.existsQuery(), slug)

	var found int
	if err := row.Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (cs *SQLStore) getDocBySlug(ctx context.Context, slug string) (*micropub.Document, error) {
	row := cs.db.QueryRowContext(ctx, cs.selectQuery(), slug)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var doc micropub.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

func (cs *SQLStore) setDeletedStatus(ctx context.Context, url string, deleted bool) (string, error) {
	slug, err := storageutil.SlugFromURL(url)
	if err != nil {
		return url, err
	}

	doc, err := cs.getDocBySlug(ctx, slug)
	if err != nil {
		return url, err
	}

	applyMutations(doc, map[string][]any{"deleted": {deleted}}, nil, nil)

	payload, err := json.Marshal(doc)
	if err != nil {
		return url, err
	}

	if _, err := cs.db.ExecContext(ctx, cs.updateQuery(), string(payload), deleted, slug); err != nil {
		return url, err
	}

	return cs.publicURL + slug, nil
}

// ensureUniqueSlugInTx checks whether the proposed slug is taken and, if so,
// appends a UUID suffix. Must run inside an active transaction.
func (cs *SQLStore) ensureUniqueSlugInTx(ctx context.Context, tx *sql.Tx, proposedSlug, oldSlug string) (string, error) {
	if proposedSlug == oldSlug {
		return proposedSlug, nil
	}

	row := tx.QueryRowContext(ctx, cs.existsQuery(), proposedSlug)

	var found int
	err := row.Scan(&found)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to check slug existence: %w", err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return proposedSlug, nil
	}

	return fmt.Sprintf("%s-%s", proposedSlug, uuid.New().String()), nil
}

func (cs *SQLStore) insertQuery() string {
	return fmt.Sprintf(
		"INSERT INTO %s (slug, url, doc, deleted, updated_at) VALUES (%s, %s, %s, %s, NOW())",
		cs.table,
		cs.placeholderFor(1),
		cs.placeholderFor(2),
		cs.placeholderFor(3),
		cs.placeholderFor(4),
	)
}

func (cs *SQLStore) updateQuery() string {
	return fmt.Sprintf(
		"UPDATE %s SET doc = %s, deleted = %s, updated_at = NOW() WHERE slug = %s",
		cs.table,
		cs.placeholderFor(1),
		cs.placeholderFor(2),
		cs.placeholderFor(3),
	)
}

func (cs *SQLStore) selectQuery() string {
	return fmt.Sprintf("SELECT doc FROM %s WHERE slug = %s", cs.table, cs.placeholderFor(1))
}

func (cs *SQLStore) existsQuery() string {
	return fmt.Sprintf("SELECT 1 FROM %s WHERE slug = %s", cs.table, cs.placeholderFor(1))
}

func (cs *SQLStore) placeholderFor(index int) string {
	if cs.placeholder == placeholderDollar {
		return fmt.Sprintf("$%d", index)
	}

	return "?"
}
