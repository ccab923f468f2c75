package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/pandora-dashboard/internal/adapter/chart"
	"github.com/couchcryptid/pandora-dashboard/internal/dashboard"
	"github.com/couchcryptid/pandora-dashboard/internal/domain"
)

var errInvalidYear = errors.New("invalid year")

type settler interface {
	WaitIdle(ctx context.Context) error
}

// PageParam names the page a browser tab loaded. Requests without it share
// the session's scratch page.
const PageParam = "page"

var errPageExpired = errors.New("page expired, reload it")

// pageRef resolves the {chemical} path segment and the page query parameter.
func pageRef(w http.ResponseWriter, r *http.Request) (domain.Chemical, string, bool) {
	chem, err := domain.ParseChemical(r.PathValue("chemical"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return "", "", false
	}
	id := r.URL.Query().Get(PageParam)
	if id != "" && !dashboard.ValidPageID(id) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid page %q", id))
		return "", "", false
	}
	return chem, id, true
}

// page returns the views the request addresses. A named page that was closed
// answers 410 so the tab knows to reload.
func (s *Server) page(w http.ResponseWriter, r *http.Request) (*dashboard.Page, bool) {
	chem, id, ok := pageRef(w, r)
	if !ok {
		return nil, false
	}
	sess := session(w, r)
	if id == "" {
		return s.pages.Scratch(sess, chem), true
	}
	page, ok := s.pages.Get(sess, id, chem)
	if !ok {
		writeError(w, http.StatusGone, errPageExpired)
		return nil, false
	}
	return page, true
}

// applyMain updates the time-series view from the site and range query
// parameters and waits for it to settle.
func (s *Server) applyMain(w http.ResponseWriter, r *http.Request) (dashboard.MainSnapshot, bool) {
	page, ok := s.page(w, r)
	if !ok {
		return dashboard.MainSnapshot{}, false
	}
	cur := page.Main.Snapshot()
	f, err := mainFilterFrom(r.URL.Query(), domain.MainFilter{Site: cur.Site, Range: cur.Range})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return dashboard.MainSnapshot{}, false
	}
	if err := page.Main.SetFilter(f); err != nil {
		writeError(w, statusFor(err), err)
		return dashboard.MainSnapshot{}, false
	}
	s.settle(r, page.Main)
	return page.Main.Snapshot(), true
}

// applyCompare updates the comparison view from the sites and year query
// parameters and waits for it to settle.
func (s *Server) applyCompare(w http.ResponseWriter, r *http.Request) (dashboard.CompareSnapshot, bool) {
	page, ok := s.page(w, r)
	if !ok {
		return dashboard.CompareSnapshot{}, false
	}
	cur := page.Compare.Snapshot()
	f, err := compareFilterFrom(r.URL.Query(), domain.CompareFilter{Sites: cur.Sites, Year: cur.Year})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return dashboard.CompareSnapshot{}, false
	}
	if err := page.Compare.SetFilter(f); err != nil {
		writeError(w, statusFor(err), err)
		return dashboard.CompareSnapshot{}, false
	}
	s.settle(r, page.Compare)
	return page.Compare.Snapshot(), true
}

func (s *Server) settle(r *http.Request, v settler) {
	ctx, cancel := context.WithTimeout(r.Context(), s.settleTimeout)
	defer cancel()
	if err := v.WaitIdle(ctx); err != nil {
		s.logger.Debug("answering before view settled", "path", r.URL.Path, "error", err)
	}
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.applyMain(w, r)
	if !ok {
		return
	}
	s.metrics.FigureRenders.WithLabelValues(domain.ViewTimeSeries, "json").Inc()
	sharedobs.WriteJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.applyCompare(w, r)
	if !ok {
		return
	}
	s.metrics.FigureRenders.WithLabelValues(domain.ViewComparison, "json").Inc()
	sharedobs.WriteJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTimeSeriesPNG(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.applyMain(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := chart.TimeSeriesPNG(&buf, snap.Site, snap.Range, snap.Series, snap.MarkerColor); err != nil {
		s.logger.Error("render time series png failed", "chemical", snap.Chemical, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.FigureRenders.WithLabelValues(domain.ViewTimeSeries, "png").Inc()
	s.writePNG(w, &buf)
}

func (s *Server) handleComparePNG(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.applyCompare(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := chart.ComparisonPNG(&buf, snap.Sites, snap.Year, snap.Data); err != nil {
		s.logger.Error("render comparison png failed", "chemical", snap.Chemical, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.FigureRenders.WithLabelValues(domain.ViewComparison, "png").Inc()
	s.writePNG(w, &buf)
}

func (s *Server) writePNG(w http.ResponseWriter, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("write png failed", "error", err)
	}
}

// mainFilterFrom overlays the site and range parameters on cur. Absent or
// empty parameters keep the current value.
func mainFilterFrom(q url.Values, cur domain.MainFilter) (domain.MainFilter, error) {
	f := cur
	if raw := q.Get("site"); raw != "" {
		site, err := domain.ParseSite(raw)
		if err != nil {
			return f, err
		}
		f.Site = site
	}
	if raw := q.Get("range"); raw != "" {
		rng, err := domain.ParseRange(raw)
		if err != nil {
			return f, err
		}
		f.Range = rng
	}
	return f, nil
}

// compareFilterFrom overlays the sites and year parameters on cur. A present
// but empty sites parameter clears the selection. Sites may repeat or be
// comma separated.
func compareFilterFrom(q url.Values, cur domain.CompareFilter) (domain.CompareFilter, error) {
	f := domain.CompareFilter{Sites: cur.Sites, Year: cur.Year}
	if raw, ok := q["sites"]; ok {
		var names []string
		for _, v := range raw {
			for _, name := range strings.Split(v, ",") {
				if name = strings.TrimSpace(name); name != "" {
					names = append(names, name)
				}
			}
		}
		sites, err := domain.ParseSites(names)
		if err != nil {
			return f, err
		}
		f.Sites = sites
	}
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return f, fmt.Errorf("%w: %q", errInvalidYear, raw)
		}
		if err := domain.ValidateYear(year); err != nil {
			return f, err
		}
		f.Year = year
	}
	return f, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrYearOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrViewClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
