package storage

import (
	"context"

	"shilohnova/internal/models"
)

// Repository exposes the record store operations required by the API handlers
// and the render pipeline. Implementations must be safe for concurrent use;
// list order is unspecified and callers must not assume insertion order.
//
// Delete operations are idempotent: removing an absent record succeeds. An
// identifier naming a different collection fails closed with
// ErrInvalidRecordID and never touches the other collection.
type Repository interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	ListBlogPosts(ctx context.Context) ([]models.BlogPost, error)
	CreateBlogPost(ctx context.Context, title, content string) (models.BlogPost, error)
	DeleteBlogPost(ctx context.Context, id string) error

	ListProjects(ctx context.Context) ([]models.Project, error)
	CreateProject(ctx context.Context, title, content, link string) (models.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

var _ Repository = (*Storage)(nil)
var _ Repository = (*postgresRepository)(nil)
