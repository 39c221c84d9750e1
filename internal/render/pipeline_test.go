package render_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"shilohnova/internal/models"
	"shilohnova/internal/render"
	"shilohnova/internal/storage"
	"shilohnova/web"
)

// brokenRepository fails every read so section error handling can be observed.
type brokenRepository struct {
	err error
}

func (r brokenRepository) Ping(context.Context) error  { return r.err }
func (r brokenRepository) Close(context.Context) error { return nil }
func (r brokenRepository) ListBlogPosts(context.Context) ([]models.BlogPost, error) {
	return nil, r.err
}
func (r brokenRepository) CreateBlogPost(context.Context, string, string) (models.BlogPost, error) {
	return models.BlogPost{}, r.err
}
func (r brokenRepository) DeleteBlogPost(context.Context, string) error { return r.err }
func (r brokenRepository) ListProjects(context.Context) ([]models.Project, error) {
	return nil, r.err
}
func (r brokenRepository) CreateProject(context.Context, string, string, string) (models.Project, error) {
	return models.Project{}, r.err
}
func (r brokenRepository) DeleteProject(context.Context, string) error { return r.err }

func newTestPipeline(t *testing.T, store storage.Repository) *render.Pipeline {
	t.Helper()
	templates, err := web.Templates()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	pipeline, err := render.NewPipeline(templates, store, render.DefaultSiteConfig())
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	return pipeline
}

func newSeededStore(t *testing.T) *storage.Storage {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	return store
}

func renderPath(t *testing.T, pipeline *render.Pipeline, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	pipeline.ServeHTTP(rec, req)
	return rec
}

func TestRenderHomePage(t *testing.T) {
	pipeline := newTestPipeline(t, newSeededStore(t))

	rec := renderPath(t, pipeline, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"Shiloh Nova", `href="/projects"`, "</html>"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRenderStreamsSectionAfterShell(t *testing.T) {
	store := newSeededStore(t)
	if _, err := store.CreateProject(context.Background(), "Streaming rewrite", "Moved the site to streamed rendering.", "https://example.com"); err != nil {
		t.Fatalf("seed project: %v", err)
	}

	pipeline := newTestPipeline(t, store)
	rec := renderPath(t, pipeline, "/projects")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	placeholder := strings.Index(body, `id="section-projects"`)
	chunk := strings.Index(body, `<template id="projects-data">`)
	if placeholder < 0 {
		t.Fatalf("placeholder missing:\n%s", body)
	}
	if chunk < 0 {
		t.Fatalf("streamed section chunk missing:\n%s", body)
	}
	if placeholder > chunk {
		t.Fatal("placeholder must be written before the streamed chunk")
	}
	if !strings.Contains(body, "Streaming rewrite") {
		t.Fatal("section content missing from streamed chunk")
	}
	if !strings.Contains(body, `getElementById("projects-data")`) || !strings.Contains(body, `getElementById("section-projects")`) {
		t.Fatal("swap script must reference the chunk and placeholder ids")
	}
	if tail := strings.Index(body, "</html>"); tail < chunk {
		t.Fatal("tail must be written after the streamed chunk")
	}
}

func TestRenderSectionErrorDegradesGracefully(t *testing.T) {
	pipeline := newTestPipeline(t, brokenRepository{err: errors.New("datastore offline")})

	rec := renderPath(t, pipeline, "/views")
	if rec.Code != http.StatusOK {
		t.Fatalf("shell must still render, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "section-error") {
		t.Fatalf("expected error boundary markup:\n%s", body)
	}
	if !strings.Contains(body, "</html>") {
		t.Fatal("page must complete despite the failed section")
	}
	if strings.Contains(body, "datastore offline") {
		t.Fatal("internal error detail must not leak into the page")
	}
}

func TestRenderAdminPanelSections(t *testing.T) {
	store := newSeededStore(t)
	post, err := store.CreateBlogPost(context.Background(), "Draft thoughts", "...")
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}

	pipeline := newTestPipeline(t, store)
	rec := renderPath(t, pipeline, "/adminpanel")
	body := rec.Body.String()

	for _, want := range []string{
		`id="section-admin-projects"`,
		`id="section-admin-blogs"`,
		`<template id="admin-blogs-data">`,
		`data-id="` + post.ID + `"`,
		`data-endpoint="/api/admin/delete-blog"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRenderUnknownPath(t *testing.T) {
	pipeline := newTestPipeline(t, newSeededStore(t))

	rec := renderPath(t, pipeline, "/no-such-page")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Page not found") {
		t.Fatalf("expected not-found page, got:\n%s", rec.Body.String())
	}
}

func TestPagePaths(t *testing.T) {
	pipeline := newTestPipeline(t, newSeededStore(t))

	paths := pipeline.PagePaths()
	sort.Strings(paths)
	want := []string{"/", "/adminpanel", "/contacts", "/login", "/projects", "/views"}
	if len(paths) != len(want) {
		t.Fatalf("expected %d paths, got %v", len(want), paths)
	}
	for i, path := range want {
		if paths[i] != path {
			t.Fatalf("expected paths %v, got %v", want, paths)
		}
	}
}

func TestRenderEmptyCollections(t *testing.T) {
	pipeline := newTestPipeline(t, newSeededStore(t))

	rec := renderPath(t, pipeline, "/projects")
	if !strings.Contains(rec.Body.String(), "empty-note") {
		t.Fatalf("expected empty-state markup:\n%s", rec.Body.String())
	}
}
