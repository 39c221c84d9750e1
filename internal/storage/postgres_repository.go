package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"shilohnova/internal/models"
)

// PostgresConfig describes how the Postgres record store initialises its
// connection pool.
type PostgresConfig struct {
	DSN                 string
	MaxConnections      int32
	MinConnections      int32
	MaxConnLifetime     time.Duration
	MaxConnIdleTime     time.Duration
	HealthCheckInterval time.Duration
	ConnectTimeout      time.Duration
	ApplicationName     string
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// document is the JSONB payload persisted per record. The compound record id
// lives in the key column, never inside the document.
type document struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Link    string `json:"link,omitempty"`
}

// NewPostgresRepository opens a Postgres-backed record store and applies the
// schema migration. The caller owns the returned repository and must Close it.
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := applyMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &postgresRepository{pool: pool}, nil
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *postgresRepository) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) listDocuments(ctx context.Context, collection string) (map[string]document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key, doc FROM documents WHERE collection = $1`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := make(map[string]document)
	for rows.Next() {
		var key string
		var payload []byte
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", collection, err)
		}
		var doc document
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", collection, err)
		}
		docs[key] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

func (r *postgresRepository) createDocument(ctx context.Context, collection string, doc document) (RecordID, error) {
	id, err := NewRecordID(collection)
	if err != nil {
		return RecordID{}, err
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return RecordID{}, fmt.Errorf("encode %s document: %w", collection, err)
	}
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO documents (collection, key, doc) VALUES ($1, $2, $3)`,
		id.Collection, id.Key, payload); err != nil {
		return RecordID{}, fmt.Errorf("insert %s document: %w", collection, err)
	}
	return id, nil
}

func (r *postgresRepository) deleteDocument(ctx context.Context, collection, rawID string) error {
	key, err := keyInCollection(rawID, collection)
	if err != nil {
		return err
	}
	// Deleting an absent key is a successful no-op, so the affected row count
	// is deliberately ignored.
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND key = $2`, collection, key); err != nil {
		return fmt.Errorf("delete %s document: %w", collection, err)
	}
	return nil
}

func (r *postgresRepository) ListBlogPosts(ctx context.Context) ([]models.BlogPost, error) {
	docs, err := r.listDocuments(ctx, CollectionBlogPosts)
	if err != nil {
		return nil, err
	}
	posts := make([]models.BlogPost, 0, len(docs))
	for key, doc := range docs {
		id := RecordID{Collection: CollectionBlogPosts, Key: key}
		posts = append(posts, models.BlogPost{ID: id.String(), Title: doc.Title, Content: doc.Content})
	}
	return posts, nil
}

func (r *postgresRepository) CreateBlogPost(ctx context.Context, title, content string) (models.BlogPost, error) {
	id, err := r.createDocument(ctx, CollectionBlogPosts, document{Title: title, Content: content})
	if err != nil {
		return models.BlogPost{}, err
	}
	return models.BlogPost{ID: id.String(), Title: title, Content: content}, nil
}

func (r *postgresRepository) DeleteBlogPost(ctx context.Context, id string) error {
	return r.deleteDocument(ctx, CollectionBlogPosts, id)
}

func (r *postgresRepository) ListProjects(ctx context.Context) ([]models.Project, error) {
	docs, err := r.listDocuments(ctx, CollectionProjects)
	if err != nil {
		return nil, err
	}
	projects := make([]models.Project, 0, len(docs))
	for key, doc := range docs {
		id := RecordID{Collection: CollectionProjects, Key: key}
		projects = append(projects, models.Project{ID: id.String(), Title: doc.Title, Content: doc.Content, Link: doc.Link})
	}
	return projects, nil
}

func (r *postgresRepository) CreateProject(ctx context.Context, title, content, link string) (models.Project, error) {
	id, err := r.createDocument(ctx, CollectionProjects, document{Title: title, Content: content, Link: link})
	if err != nil {
		return models.Project{}, err
	}
	return models.Project{ID: id.String(), Title: title, Content: content, Link: link}, nil
}

func (r *postgresRepository) DeleteProject(ctx context.Context, id string) error {
	return r.deleteDocument(ctx, CollectionProjects, id)
}
