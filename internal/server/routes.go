package server

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"shilohnova/internal/api"
	"shilohnova/internal/observability/metrics"
	"shilohnova/internal/render"
)

// routeGroup is a named route table built independently of the others so a
// reader can see the whole public or protected surface in one place.
type routeGroup struct {
	name   string
	routes map[string]http.Handler
}

func newRouteGroup(name string) *routeGroup {
	return &routeGroup{name: name, routes: make(map[string]http.Handler)}
}

func (g *routeGroup) handle(pattern string, handler http.Handler) {
	g.routes[pattern] = handler
}

func (g *routeGroup) handleFunc(pattern string, handler http.HandlerFunc) {
	g.handle(pattern, handler)
}

// buildRoutes declares both route groups and merges them into the mux. The
// protected group is wrapped by the session gate at merge time so no
// protected handler can be registered bare.
func buildRoutes(mux *http.ServeMux, handler *api.Handler, renderer *render.Pipeline, recorder *metrics.Recorder, staticFS fs.FS) {
	public := newRouteGroup("public")
	public.handleFunc("/healthz", handler.Health)
	public.handle("/metrics", recorder.Handler())
	public.handleFunc("/api/login", handler.Login)
	public.handleFunc("/api/", handler.PublicRPC)

	protected := newRouteGroup("protected")
	protected.handleFunc("/api/admin/", handler.AdminRPC)
	protected.handleFunc("/api/publish-blog", handler.PublishBlog)
	protected.handleFunc("/api/publish-project", handler.PublishProject)

	for _, path := range renderer.PagePaths() {
		group := public
		if path == render.AdminPagePath {
			group = protected
		}
		if path == "/" {
			// The root pattern doubles as the fallback: unmatched
			// paths try the static assets first, then the renderer,
			// which answers unknown paths with the not-found page.
			group.handle("/", fallbackHandler(staticFS, renderer))
			continue
		}
		group.handle(path, renderer)
	}

	fileServer := http.FileServer(http.FS(staticFS))
	public.handle("/static/", http.StripPrefix("/static/", fileServer))

	for pattern, h := range public.routes {
		mux.Handle(pattern, h)
	}
	gate := sessionGate(handler, recorder)
	for pattern, h := range protected.routes {
		mux.Handle(pattern, gate(h))
	}
}

// sessionGate rejects requests that do not carry a live session. Every
// protected path answers 401, pages included; the login page itself stays in
// the public group.
func sessionGate(handler *api.Handler, recorder *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := handler.AuthorizeRequest(r)
			if err != nil || !ok {
				recorder.ObserveSessionEvent("rejected")
				api.WriteError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
				return
			}
			recorder.ObserveSessionEvent("validated")
			next.ServeHTTP(w, r)
		})
	}
}

// fallbackHandler serves root-level static files such as favicon.ico and
// hands everything else to the renderer.
func fallbackHandler(staticFS fs.FS, renderer *render.Pipeline) http.HandlerFunc {
	fileServer := http.FileServer(http.FS(staticFS))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, fmt.Sprintf("method %s not allowed", r.Method), http.StatusMethodNotAllowed)
			return
		}

		requested := strings.TrimPrefix(r.URL.Path, "/")
		if requested != "" {
			file, err := staticFS.Open(requested)
			if err == nil {
				defer file.Close()
				info, statErr := file.Stat()
				if statErr == nil && !info.IsDir() {
					fileServer.ServeHTTP(w, r)
					return
				}
				if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
					http.Error(w, statErr.Error(), http.StatusInternalServerError)
					return
				}
			} else if !errors.Is(err, fs.ErrNotExist) {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}

		renderer.ServeHTTP(w, r)
	}
}
