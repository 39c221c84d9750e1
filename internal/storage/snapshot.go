package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"shilohnova/internal/models"
)

// Snapshot is a full copy of both collections, used to move data between
// store drivers. Record ids are preserved verbatim.
type Snapshot struct {
	BlogPosts []models.BlogPost
	Projects  []models.Project
}

// SnapshotCounts summarises a snapshot for logging and verification.
type SnapshotCounts struct {
	BlogPosts int
	Projects  int
}

func (s Snapshot) Counts() SnapshotCounts {
	return SnapshotCounts{BlogPosts: len(s.BlogPosts), Projects: len(s.Projects)}
}

// LoadSnapshotFromJSON reads the JSON datastore at path into a snapshot.
func LoadSnapshotFromJSON(path string) (Snapshot, error) {
	store, err := NewStorage(path)
	if err != nil {
		return Snapshot{}, err
	}
	ctx := context.Background()
	posts, err := store.ListBlogPosts(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	projects, err := store.ListProjects(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{BlogPosts: posts, Projects: projects}, nil
}

// ImportSnapshotToPostgres writes the snapshot into the Postgres store named
// by dsn, applying the schema first. Both collections are copied
// concurrently; existing rows with the same id are overwritten, so the import
// can be re-run.
func ImportSnapshotToPostgres(ctx context.Context, dsn string, snap Snapshot) error {
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("postgres dsn required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open postgres pool: %w", err)
	}
	defer pool.Close()

	if err := applyMigrations(ctx, pool); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		for _, post := range snap.BlogPosts {
			doc := document{Title: post.Title, Content: post.Content}
			if err := upsertDocument(groupCtx, pool, CollectionBlogPosts, post.ID, doc); err != nil {
				return err
			}
		}
		return nil
	})
	group.Go(func() error {
		for _, project := range snap.Projects {
			doc := document{Title: project.Title, Content: project.Content, Link: project.Link}
			if err := upsertDocument(groupCtx, pool, CollectionProjects, project.ID, doc); err != nil {
				return err
			}
		}
		return nil
	})
	return group.Wait()
}

func upsertDocument(ctx context.Context, pool *pgxpool.Pool, collection, rawID string, doc document) error {
	key, err := keyInCollection(rawID, collection)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx,
		`INSERT INTO documents (collection, key, doc) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, key) DO UPDATE SET doc = EXCLUDED.doc`,
		collection, key, doc)
	if err != nil {
		return fmt.Errorf("import %s %s: %w", collection, rawID, err)
	}
	return nil
}

// CountDocuments reports how many rows Postgres holds per collection, for
// post-import verification.
func CountDocuments(ctx context.Context, dsn string) (SnapshotCounts, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return SnapshotCounts{}, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return SnapshotCounts{}, fmt.Errorf("open postgres pool: %w", err)
	}
	defer pool.Close()

	var counts SnapshotCounts
	row := pool.QueryRow(ctx, `SELECT count(*) FROM documents WHERE collection = $1`, CollectionBlogPosts)
	if err := row.Scan(&counts.BlogPosts); err != nil {
		return SnapshotCounts{}, fmt.Errorf("count %s: %w", CollectionBlogPosts, err)
	}
	row = pool.QueryRow(ctx, `SELECT count(*) FROM documents WHERE collection = $1`, CollectionProjects)
	if err := row.Scan(&counts.Projects); err != nil {
		return SnapshotCounts{}, fmt.Errorf("count %s: %w", CollectionProjects, err)
	}
	return counts, nil
}
