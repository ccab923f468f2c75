package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"slices"
	"strings"

	"github.com/couchcryptid/pandora-dashboard/internal/dashboard"
	"github.com/couchcryptid/pandora-dashboard/internal/domain"
)

//go:embed templates/*.html static/*
var assets embed.FS

var funcs = template.FuncMap{
	"hasSite": slices.Contains[[]domain.Site, domain.Site],
	"slug":    slug,
}

var templates = map[string]*template.Template{
	"home":     parsePage("templates/home.html"),
	"chemical": parsePage("templates/chemical.html"),
}

func parsePage(file string) *template.Template {
	return template.Must(template.New("layout.html").Funcs(funcs).ParseFS(assets, "templates/layout.html", file))
}

type navLink struct {
	Path  string
	Label string
}

// nav is the sidebar: Home, then one entry per chemical.
func nav() []navLink {
	links := []navLink{{Path: "/", Label: "Home"}}
	for _, chem := range domain.Chemicals {
		links = append(links, navLink{Path: chem.Path(), Label: chem.Name() + " (" + chem.Formula() + ")"})
	}
	return links
}

type pageData struct {
	Title   string
	Path    string
	Nav     []navLink
	MinYear int
	MaxYear int

	Chemical domain.Chemical
	PageID   string
	Sites    []domain.Site
	Ranges   []domain.Range
	Main     dashboard.MainSnapshot
	Compare  dashboard.CompareSnapshot
}

// slug is the chemical segment of API routes.
func slug(c domain.Chemical) string {
	return strings.ToLower(c.String())
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	s.render(w, "home", pageData{Title: "Pandora Air Quality Dashboard", Path: "/", Nav: nav()})
}

// handleChemicalPage opens fresh views for every load, so each tab keeps its
// own filters and a reload starts from the defaults.
func (s *Server) handleChemicalPage(chem domain.Chemical) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := s.pages.Open(session(w, r), chem)
		s.render(w, "chemical", pageData{
			Title:    chem.Name() + " (" + chem.Formula() + ")",
			Path:     chem.Path(),
			Nav:      nav(),
			MinYear:  domain.MinYear,
			MaxYear:  domain.MaxYear,
			Chemical: chem,
			PageID:   page.ID,
			Sites:    domain.Sites,
			Ranges:   domain.Ranges,
			Main:     page.Main.Snapshot(),
			Compare:  page.Compare.Snapshot(),
		})
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	var buf bytes.Buffer
	if err := templates[name].Execute(&buf, data); err != nil {
		s.logger.Error("render page failed", "page", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("write page failed", "page", name, "error", err)
	}
}
