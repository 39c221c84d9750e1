package render

import (
	"log/slog"
	"net/http"

	"shilohnova/internal/observability/metrics"
	"shilohnova/internal/storage"
)

// SiteConfig holds the site identity woven into every rendered page.
type SiteConfig struct {
	Title   string
	Tagline string
	Author  string
	Email   string
	GitHub  string
}

// DefaultSiteConfig returns the identity used when no overrides are supplied.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		Title:   "Shiloh Nova",
		Tagline: "Software, writing, and other projects",
		Author:  "Shiloh Nova",
		Email:   "hello@shilohnova.dev",
		GitHub:  "https://github.com/shilohnova",
	}
}

// Context carries everything a single page render needs. A fresh value is
// built per request; nothing here outlives the response.
type Context struct {
	Request *http.Request
	Store   storage.Repository
	Site    SiteConfig
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

func (c *Context) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Context) recorder() *metrics.Recorder {
	if c.Metrics != nil {
		return c.Metrics
	}
	return metrics.Default()
}
