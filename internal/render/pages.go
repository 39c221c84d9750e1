package render

import "html/template"

// AdminPagePath is the one page path that sits behind the session gate.
const AdminPagePath = "/adminpanel"

const notFoundTemplate = "notfound.tmpl"

// page describes a renderable route: its template plus the data sections
// that are fetched asynchronously while the shell streams.
type page struct {
	Path     string
	Title    string
	Template string
	Sections []section
}

// section is one asynchronously fetched block of page content. The shell
// renders a placeholder under the section's DOM id; the pipeline streams the
// resolved markup afterwards.
type section struct {
	ID    string
	Label string
	Fetch func(*Context) (template.HTML, error)
}

// pageTree declares every navigable page. The section fetch closures capture
// the pipeline so they can render partial templates.
func (p *Pipeline) pageTree() map[string]*page {
	pages := []*page{
		{
			Path:     "/",
			Title:    "Home",
			Template: "home.tmpl",
		},
		{
			Path:     "/projects",
			Title:    "Projects",
			Template: "projects.tmpl",
			Sections: []section{
				{ID: "projects", Label: "projects", Fetch: p.fetchProjects},
			},
		},
		{
			Path:     "/views",
			Title:    "Views",
			Template: "views.tmpl",
			Sections: []section{
				{ID: "blogs", Label: "posts", Fetch: p.fetchBlogPosts},
			},
		},
		{
			Path:     "/contacts",
			Title:    "Contacts",
			Template: "contacts.tmpl",
		},
		{
			Path:     "/login",
			Title:    "Login",
			Template: "login.tmpl",
		},
		{
			Path:     AdminPagePath,
			Title:    "Admin Panel",
			Template: "adminpanel.tmpl",
			Sections: []section{
				{ID: "admin-projects", Label: "projects", Fetch: p.fetchAdminProjects},
				{ID: "admin-blogs", Label: "posts", Fetch: p.fetchAdminBlogPosts},
			},
		},
	}
	tree := make(map[string]*page, len(pages))
	for _, pg := range pages {
		tree[pg.Path] = pg
	}
	return tree
}

// PagePaths lists every page path the pipeline can render, for route
// registration.
func (p *Pipeline) PagePaths() []string {
	paths := make([]string, 0, len(p.pages))
	for path := range p.pages {
		paths = append(paths, path)
	}
	return paths
}

func (p *Pipeline) fetchProjects(rc *Context) (template.HTML, error) {
	projects, err := rc.Store.ListProjects(rc.Request.Context())
	if err != nil {
		return "", err
	}
	return p.renderPartial("project_list.tmpl", projects)
}

func (p *Pipeline) fetchBlogPosts(rc *Context) (template.HTML, error) {
	posts, err := rc.Store.ListBlogPosts(rc.Request.Context())
	if err != nil {
		return "", err
	}
	return p.renderPartial("blog_list.tmpl", posts)
}

func (p *Pipeline) fetchAdminProjects(rc *Context) (template.HTML, error) {
	projects, err := rc.Store.ListProjects(rc.Request.Context())
	if err != nil {
		return "", err
	}
	return p.renderPartial("admin_project_list.tmpl", projects)
}

func (p *Pipeline) fetchAdminBlogPosts(rc *Context) (template.HTML, error) {
	posts, err := rc.Store.ListBlogPosts(rc.Request.Context())
	if err != nil {
		return "", err
	}
	return p.renderPartial("admin_blog_list.tmpl", posts)
}
