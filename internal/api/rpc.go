package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"shilohnova/internal/storage"
)

// The dispatcher exposes a fixed, named operation set. Tables are keyed by
// the rpc name that trails /api/ or /api/admin/ in the request path; unknown
// names are a 404 before any payload is read.
var (
	publicOperations = map[string]func(*Handler, http.ResponseWriter, *http.Request){
		"list-projects": (*Handler).listProjects,
		"list-blogs":    (*Handler).listBlogs,
	}
	adminOperations = map[string]func(*Handler, http.ResponseWriter, *http.Request){
		"delete-project": (*Handler).deleteProject,
		"delete-blog":    (*Handler).deleteBlog,
	}
)

// PublicRPC dispatches the read-only operations mounted under /api/.
func (h *Handler) PublicRPC(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, "/api/", publicOperations)
}

// AdminRPC dispatches the destructive operations mounted under /api/admin/.
// The route group gate has already authorised the request by the time this
// handler runs.
func (h *Handler) AdminRPC(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, "/api/admin/", adminOperations)
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, prefix string, table map[string]func(*Handler, http.ResponseWriter, *http.Request)) {
	name := strings.TrimPrefix(r.URL.Path, prefix)
	operation, ok := table[name]
	if !ok || strings.Contains(name, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown rpc %q", name))
		return
	}
	if !requirePost(w, r) {
		return
	}
	operation(h, w, r)
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	h.recorder().ObserveRecordOp(storage.CollectionProjects, "list", err)
	if err != nil {
		h.logger().Error("list projects failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("could not list projects"))
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) listBlogs(w http.ResponseWriter, r *http.Request) {
	posts, err := h.Store.ListBlogPosts(r.Context())
	h.recorder().ObserveRecordOp(storage.CollectionBlogPosts, "list", err)
	if err != nil {
		h.logger().Error("list blog posts failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("could not list blog posts"))
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

type publishBlogRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// PublishBlog persists a new blog post. Emptiness checks happen client-side
// in the admin page script; the server stores what it is given.
func (h *Handler) PublishBlog(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req publishBlogRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	post, err := h.Store.CreateBlogPost(r.Context(), req.Title, req.Content)
	h.recorder().ObserveRecordOp(storage.CollectionBlogPosts, "create", err)
	if err != nil {
		h.logger().Error("publish blog post failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("could not store blog post"))
		return
	}
	h.logger().Info("blog post published", "record_id", post.ID)
	writeJSON(w, http.StatusCreated, post)
}

type publishProjectRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Link    string `json:"link"`
}

// PublishProject persists a new portfolio project.
func (h *Handler) PublishProject(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req publishProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	project, err := h.Store.CreateProject(r.Context(), req.Title, req.Content, req.Link)
	h.recorder().ObserveRecordOp(storage.CollectionProjects, "create", err)
	if err != nil {
		h.logger().Error("publish project failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("could not store project"))
		return
	}
	h.logger().Info("project published", "record_id", project.ID)
	writeJSON(w, http.StatusCreated, project)
}

type deleteRequest struct {
	ID string `json:"id"`
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := h.Store.DeleteProject(r.Context(), req.ID)
	h.recorder().ObserveRecordOp(storage.CollectionProjects, "delete", err)
	h.finishDelete(w, "project", req.ID, err)
}

func (h *Handler) deleteBlog(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := h.Store.DeleteBlogPost(r.Context(), req.ID)
	h.recorder().ObserveRecordOp(storage.CollectionBlogPosts, "delete", err)
	h.finishDelete(w, "blog post", req.ID, err)
}

func (h *Handler) finishDelete(w http.ResponseWriter, kind, id string, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidRecordID):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		h.logger().Error("delete failed", "kind", kind, "record_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("could not delete %s", kind))
	default:
		h.logger().Info("record deleted", "kind", kind, "record_id", id)
		w.WriteHeader(http.StatusNoContent)
	}
}
