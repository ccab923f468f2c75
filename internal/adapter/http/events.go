package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/couchcryptid/pandora-dashboard/internal/dashboard"
	"github.com/couchcryptid/pandora-dashboard/internal/domain"
)

// handleEvents streams the view snapshot, as a server-sent event named after
// the view, whenever one of the page's views changes state. The connection
// holds a lease on the page and ends when the page is closed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	chem, id, ok := pageRef(w, r)
	if !ok {
		return
	}
	sess := session(w, r)
	if id == "" {
		s.pages.Scratch(sess, chem)
	}
	page, release, ok := s.pages.Attach(sess, id, chem)
	if !ok {
		writeError(w, http.StatusGone, errPageExpired)
		return
	}
	defer release()

	rc := http.NewResponseController(w)
	// The stream outlives the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	changes := make(chan string, 8)
	notify := func(view string) func() {
		return func() {
			select {
			case changes <- view:
			default:
			}
		}
	}
	defer page.Main.Subscribe(notify(domain.ViewTimeSeries))()
	defer page.Compare.Subscribe(notify(domain.ViewComparison))()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		s.logger.Warn("event stream unsupported", "error", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case <-page.Done():
			fmt.Fprint(w, "event: closed\ndata: {}\n\n")
			_ = rc.Flush()
			return
		case view := <-changes:
			data, err := snapshotJSON(page, view)
			if err != nil {
				s.logger.Error("encode view snapshot failed", "view", view, "error", err)
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", view, data)
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// snapshotJSON encodes the current state of the named view on one line.
func snapshotJSON(page *dashboard.Page, view string) ([]byte, error) {
	if view == domain.ViewComparison {
		return json.Marshal(page.Compare.Snapshot())
	}
	return json.Marshal(page.Main.Snapshot())
}
