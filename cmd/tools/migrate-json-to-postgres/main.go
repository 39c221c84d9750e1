// Command migrate-json-to-postgres copies stored records from the JSON
// datastore into Postgres, preserving record ids.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"shilohnova/internal/storage"
)

func main() {
	jsonPath := flag.String("json", "data/store.json", "path to the JSON datastore to migrate")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	dsn := strings.TrimSpace(*postgresDSN)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("SHILOHNOVA_POSTGRES_DSN"))
	}
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		logger.Error("postgres DSN required", "hint", "set --postgres-dsn, SHILOHNOVA_POSTGRES_DSN, or DATABASE_URL")
		os.Exit(1)
	}

	snapshot, err := storage.LoadSnapshotFromJSON(*jsonPath)
	if err != nil {
		logger.Error("failed to load JSON snapshot", "error", err)
		os.Exit(1)
	}
	counts := snapshot.Counts()
	logger.Info("loaded JSON snapshot", "path", *jsonPath, "blog_posts", counts.BlogPosts, "projects", counts.Projects)

	ctx := context.Background()
	if err := storage.ImportSnapshotToPostgres(ctx, dsn, snapshot); err != nil {
		logger.Error("failed to import snapshot", "error", err)
		os.Exit(1)
	}

	imported, err := storage.CountDocuments(ctx, dsn)
	if err != nil {
		logger.Error("verification failed", "error", err)
		os.Exit(1)
	}
	if imported.BlogPosts < counts.BlogPosts || imported.Projects < counts.Projects {
		logger.Error("verification failed", "error", fmt.Errorf("postgres holds %d/%d blog posts and %d/%d projects",
			imported.BlogPosts, counts.BlogPosts, imported.Projects, counts.Projects))
		os.Exit(1)
	}

	logger.Info("migration completed", "blog_posts", imported.BlogPosts, "projects", imported.Projects)
}
