package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	cloudflare "github.com/cloudflare/cloudflare-go/v6"
	cfd1 "github.com/cloudflare/cloudflare-go/v6/d1"
	"github.com/cloudflare/cloudflare-go/v6/option"

	"github.com/indieinfra/quill/config"
	"github.com/indieinfra/quill/micropub"
	storageutil "github.com/indieinfra/quill/storage/util"
)

// D1Store persists documents in Cloudflare D1 via the HTTP API. The table
// schema mirrors SQLStore so backends stay interchangeable.
type D1Store struct {
	cfg       *config.D1ContentStrategy
	client    *cloudflare.Client
	table     string
	publicURL string
}

func NewD1Store(cfg *config.D1ContentStrategy) (*D1Store, error) {
	return newD1StoreWithClient(cfg, nil)
}

// newD1StoreWithClient allows tests to inject a mock HTTP client.
func newD1StoreWithClient(cfg *config.D1ContentStrategy, httpClient *http.Client) (*D1Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("d1 content config is nil")
	}

	prefix := "quill"
	if cfg.TablePrefix != nil {
		prefix = *cfg.TablePrefix
	}

	table := "content"
	if prefix != "" {
		table = prefix + "_content"
	}

	store := &D1Store{
		cfg:       cfg,
		client:    buildD1Client(cfg, httpClient),
		table:     table,
		publicURL: storageutil.NormalizeBaseURL(cfg.PublicUrl),
	}

	// Schema creation doubles as a connectivity and credential check.
	if err := store.initSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("d1 initialization failed (check account_id, database_id, and api_token): %w", err)
	}

	return store, nil
}

func buildD1Client(cfg *config.D1ContentStrategy, httpClient *http.Client) *cloudflare.Client {
	opts := []option.RequestOption{option.WithAPIToken(strings.TrimSpace(cfg.APIToken))}

	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	if base := strings.TrimSpace(cfg.Endpoint); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	return cloudflare.NewClient(opts...)
}

func (cs *D1Store) initSchema(ctx context.Context) error {
	_, err := cs.executeQuery(ctx, cs.schemaQuery(), nil)
	return err
}

func (cs *D1Store) schemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
slug TEXT PRIMARY KEY,
url TEXT NOT NULL,
doc TEXT NOT NULL,
deleted BOOLEAN NOT NULL DEFAULT FALSE,
updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, cs.table)
}

func (cs *D1Store) insertQuery() string {
	return fmt.Sprintf("INSERT INTO %s (slug, url, doc, deleted, updated_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)", cs.table)
}

func (cs *D1Store) updateQuery() string {
	return fmt.Sprintf("UPDATE %s SET doc = ?, deleted = ?, updated_at = CURRENT_TIMESTAMP WHERE slug = ?", cs.table)
}

func (cs *D1Store) selectQuery() string {
	return fmt.Sprintf("SELECT doc FROM %s WHERE slug = ? LIMIT 1", cs.table)
}

func (cs *D1Store) existsQuery() string {
	return fmt.Sprintf("SELECT 1 FROM %s WHERE slug = ? LIMIT 1", cs.table)
}

func (cs *D1Store) Create(ctx context.Context, doc micropub.Document) (string, error) {
	slug, err := ExtractSlug(doc)
	if err != nil {
		return "", err
	}

	url := cs.publicURL + slug

	payload, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	if _, err := cs.executeQuery(ctx, cs.insertQuery(), []any{slug, url, string(payload), false}); err != nil {
		return "", err
	}

	return url, nil
}

func (cs *D1Store) Update(ctx context.Context, url string, replacements map[string][]any, additions map[string][]any, deletions any) (string, error) {
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
		newSlug, err = computeNewSlug(doc, replacements)
		if err != nil {
			return url, err
		}
		doc.Properties["slug"] = []any{newSlug}
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return url, err
	}

	newURL := cs.publicURL + newSlug

	if newSlug != oldSlug {
		deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE slug = ?", cs.table)
		if _, err := cs.executeQuery(ctx, deleteQuery, []any{oldSlug}); err != nil {
			return url, err
		}

		if _, err := cs.executeQuery(ctx, cs.insertQuery(), []any{newSlug, newURL, string(payload), deletedFlag(doc)}); err != nil {
			return url, err
		}
	} else {
		if _, err := cs.executeQuery(ctx, cs.updateQuery(), []any{string(payload), deletedFlag(doc), oldSlug}); err != nil {
			return url, err
		}
	}

	return newURL, nil
}

func (cs *D1Store) Delete(ctx context.Context, url string) error {
	_, err := cs.setDeletedStatus(ctx, url, true)
	return err
}

func (cs *D1Store) Undelete(ctx context.Context, url string) (string, bool, error) {
	newURL, err := cs.setDeletedStatus(ctx, url, false)
	return newURL, false, err
}

func (cs *D1Store) Get(ctx context.Context, url string) (*micropub.Document, error) {
	slug, err := storageutil.SlugFromURL(url)
	if err != nil {
		return nil, err
	}

	return cs.getDocBySlug(ctx, slug)
}

func (cs *D1Store) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	rows, err := cs.executeQuery(ctx, cs.existsQuery(), []any{slug})
	if err != nil {
		return false, err
	}

	return len(rows) > 0, nil
}

func (cs *D1Store) getDocBySlug(ctx context.Context, slug string) (*micropub.Document, error) {
	rows, err := cs.executeQuery(ctx, cs.selectQuery(), []any{slug})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	raw, ok := rows[0]["doc"].(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("doc column missing or not a string")
	}

	var doc micropub.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

func (cs *D1Store) setDeletedStatus(ctx context.Context, url string, deleted bool) (string, error) {
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

	if _, err := cs.executeQuery(ctx, cs.updateQuery(), []any{string(payload), deleted, slug}); err != nil {
		return url, err
	}

	return cs.publicURL + slug, nil
}

// executeQuery sends a SQL statement to D1 and returns the result rows.
// A successful statement with no results yields nil rows and no error.
func (cs *D1Store) executeQuery(ctx context.Context, sql string, params []any) ([]map[string]any, error) {
	body := cfd1.DatabaseQueryParamsBodyD1SingleQuery{Sql: cloudflare.F(sql)}
	if len(params) > 0 {
		body.Params = cloudflare.F(convertParams(params))
	}

	resp, err := cs.client.D1.Database.Query(ctx, cs.cfg.DatabaseID, cfd1.DatabaseQueryParams{
		AccountID: cloudflare.F(strings.TrimSpace(cs.cfg.AccountID)),
		Body:      body,
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Result) == 0 {
		return nil, nil
	}

	result := resp.Result[0]
	if !result.Success {
		return nil, fmt.Errorf("d1 query execution failed")
	}

	rows := make([]map[string]any, 0, len(result.Results))
	for _, r := range result.Results {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected row type %T", r)
		}
		rows = append(rows, m)
	}

	return rows, nil
}

// convertParams converts parameters to D1's string-based format. Booleans
// become "1"/"0"; everything else goes through Sprint.
func convertParams(params []any) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		switch v := p.(type) {
		case bool:
			if v {
				out = append(out, "1")
			} else {
				out = append(out, "0")
			}
		default:
			out = append(out, fmt.Sprint(p))
		}
	}

	return out
}
