package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"shilohnova/internal/models"
)

type dataset struct {
	BlogPosts map[string]models.BlogPost `json:"blogPosts"`
	Projects  map[string]models.Project  `json:"projects"`
}

func newDataset() dataset {
	return dataset{
		BlogPosts: make(map[string]models.BlogPost),
		Projects:  make(map[string]models.Project),
	}
}

// Storage is the JSON-file record store driver. All records live in memory
// behind a RWMutex and every mutation is persisted atomically to disk before
// it is considered committed; a failed persist rolls the mutation back.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

// Option mutates JSON storage configuration.
type Option func(*Storage)

// WithPersistOverride replaces the on-disk persist step, primarily so tests
// can observe or fail persistence.
func WithPersistOverride(persist func(dataset) error) Option {
	return func(s *Storage) {
		s.persistOverride = persist
	}
}

// NewStorage opens (or initialises) a JSON-file backed store at path.
func NewStorage(path string, opts ...Option) (*Storage, error) {
	s := &Storage{filePath: path, data: newDataset()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) load() error {
	if s.filePath == "" {
		return nil
	}
	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open datastore: %w", err)
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read datastore: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	var data dataset
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("decode datastore: %w", err)
	}
	if data.BlogPosts == nil {
		data.BlogPosts = make(map[string]models.BlogPost)
	}
	if data.Projects == nil {
		data.Projects = make(map[string]models.Project)
	}
	s.data = data
	return nil
}

func (s *Storage) persistLocked() error {
	if s.persistOverride != nil {
		return s.persistOverride(s.data)
	}
	if s.filePath == "" {
		return nil
	}
	payload, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode datastore: %w", err)
	}
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datastore directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "datastore-*.json")
	if err != nil {
		return fmt.Errorf("create datastore temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write datastore: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close datastore temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace datastore: %w", err)
	}
	return nil
}

// Ping reports whether the store is usable.
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Close is a no-op for the JSON driver; state is persisted on every mutation.
func (s *Storage) Close(ctx context.Context) error {
	return nil
}

// ListBlogPosts returns every record in the blog_post collection.
func (s *Storage) ListBlogPosts(ctx context.Context) ([]models.BlogPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := make([]models.BlogPost, 0, len(s.data.BlogPosts))
	for _, post := range s.data.BlogPosts {
		posts = append(posts, post)
	}
	return posts, nil
}

// CreateBlogPost persists a new blog post and returns the stored record with
// its server-assigned identifier.
func (s *Storage) CreateBlogPost(ctx context.Context, title, content string) (models.BlogPost, error) {
	id, err := NewRecordID(CollectionBlogPosts)
	if err != nil {
		return models.BlogPost{}, err
	}
	post := models.BlogPost{ID: id.String(), Title: title, Content: content}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.BlogPosts[post.ID] = post
	if err := s.persistLocked(); err != nil {
		delete(s.data.BlogPosts, post.ID)
		return models.BlogPost{}, fmt.Errorf("persist blog post: %w", err)
	}
	return post, nil
}

// DeleteBlogPost removes the record if present. Deleting an absent record is
// a successful no-op.
func (s *Storage) DeleteBlogPost(ctx context.Context, id string) error {
	if _, err := keyInCollection(id, CollectionBlogPosts); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.data.BlogPosts[id]
	if !ok {
		return nil
	}
	delete(s.data.BlogPosts, id)
	if err := s.persistLocked(); err != nil {
		s.data.BlogPosts[id] = existing
		return fmt.Errorf("persist blog post delete: %w", err)
	}
	return nil
}

// ListProjects returns every record in the project collection.
func (s *Storage) ListProjects(ctx context.Context) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	projects := make([]models.Project, 0, len(s.data.Projects))
	for _, project := range s.data.Projects {
		projects = append(projects, project)
	}
	return projects, nil
}

// CreateProject persists a new project and returns the stored record.
func (s *Storage) CreateProject(ctx context.Context, title, content, link string) (models.Project, error) {
	id, err := NewRecordID(CollectionProjects)
	if err != nil {
		return models.Project{}, err
	}
	project := models.Project{ID: id.String(), Title: title, Content: content, Link: link}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Projects[project.ID] = project
	if err := s.persistLocked(); err != nil {
		delete(s.data.Projects, project.ID)
		return models.Project{}, fmt.Errorf("persist project: %w", err)
	}
	return project, nil
}

// DeleteProject removes the record if present; absent records are a no-op.
func (s *Storage) DeleteProject(ctx context.Context, id string) error {
	if _, err := keyInCollection(id, CollectionProjects); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.data.Projects[id]
	if !ok {
		return nil
	}
	delete(s.data.Projects, id)
	if err := s.persistLocked(); err != nil {
		s.data.Projects[id] = existing
		return fmt.Errorf("persist project delete: %w", err)
	}
	return nil
}
