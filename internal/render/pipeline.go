package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"shilohnova/internal/observability/metrics"
	"shilohnova/internal/storage"
)

// Pipeline renders the page tree. The page shell is written immediately with
// a placeholder per data section; each section is fetched on its own
// goroutine and streamed to the client in completion order as a <template>
// element plus a small swap script. A failed fetch degrades only its own
// section.
type Pipeline struct {
	store   storage.Repository
	site    SiteConfig
	logger  *slog.Logger
	metrics *metrics.Recorder

	templates *template.Template
	pages     map[string]*page
}

// PipelineOption adjusts optional Pipeline collaborators.
type PipelineOption func(*Pipeline)

// WithLogger attaches a structured logger to the pipeline.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics attaches a metrics recorder to the pipeline.
func WithMetrics(recorder *metrics.Recorder) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = recorder
	}
}

// NewPipeline parses the bundled templates and builds the page tree.
func NewPipeline(templatesFS fs.FS, store storage.Repository, site SiteConfig, opts ...PipelineOption) (*Pipeline, error) {
	tmpl, err := template.ParseFS(templatesFS, "*.tmpl", "partials/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	p := &Pipeline{
		store:     store,
		site:      site,
		templates: tmpl,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.pages = p.pageTree()
	return p, nil
}

type pageData struct {
	Site     SiteConfig
	Title    string
	Path     string
	Sections []section
}

type sectionResult struct {
	id      string
	content template.HTML
	err     error
	took    time.Duration
}

// ServeHTTP renders the page registered at the request path, or the
// not-found page with a 404 status when the path is unknown.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.Render(w, r, r.URL.Path)
}

// Render streams the page registered at path to w.
func (p *Pipeline) Render(w http.ResponseWriter, r *http.Request, path string) {
	status := http.StatusOK
	pg, ok := p.pages[path]
	if !ok {
		pg = &page{Path: path, Title: "Not Found", Template: notFoundTemplate}
		status = http.StatusNotFound
	}

	rc := &Context{
		Request: r,
		Store:   p.store,
		Site:    p.site,
		Logger:  p.logger,
		Metrics: p.metrics,
	}

	// Fetches start before the first byte is written so slow sections
	// overlap with shell delivery. The channel is buffered to the section
	// count; a fetch whose client has gone away still completes its send
	// and is discarded with the response.
	results := make(chan sectionResult, len(pg.Sections))
	for _, sec := range pg.Sections {
		go p.fetchSection(rc, sec, results)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	data := pageData{
		Site:     p.site,
		Title:    pg.Title,
		Path:     pg.Path,
		Sections: pg.Sections,
	}
	if err := p.templates.ExecuteTemplate(w, pg.Template, data); err != nil {
		rc.logger().Error("render shell failed", "path", path, "error", err)
		return
	}
	flush(w)

	for range pg.Sections {
		res := <-results
		p.streamSection(w, rc, pg, res)
	}

	if err := p.templates.ExecuteTemplate(w, "tail", data); err != nil {
		rc.logger().Error("render tail failed", "path", path, "error", err)
	}
	flush(w)
}

func (p *Pipeline) fetchSection(rc *Context, sec section, results chan<- sectionResult) {
	start := time.Now()
	content, err := sec.Fetch(rc)
	results <- sectionResult{
		id:      sec.ID,
		content: content,
		err:     err,
		took:    time.Since(start),
	}
}

func (p *Pipeline) streamSection(w http.ResponseWriter, rc *Context, pg *page, res sectionResult) {
	rc.recorder().ObserveRenderSection(pg.Path, res.id, res.err, res.took)
	content := res.content
	if res.err != nil {
		rc.logger().Error("section fetch failed", "path", pg.Path, "section", res.id, "error", res.err)
		content = template.HTML(`<p class="section-error">This section could not be loaded right now.</p>`)
	}
	fmt.Fprintf(w, "<template id=%q>%s</template>\n", res.id+"-data", content)
	fmt.Fprintf(w, swapScript, res.id+"-data", "section-"+res.id)
	flush(w)
}

// swapScript moves streamed section markup into its placeholder. The two
// verbs are the <template> element id and the placeholder element id.
const swapScript = `<script>(function(){var t=document.getElementById(%q);var s=document.getElementById(%q);if(t&&s){s.replaceChildren(t.content.cloneNode(true));s.removeAttribute("aria-busy");t.remove();}})();</script>
`

func (p *Pipeline) renderPartial(name string, data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := p.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render partial %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
