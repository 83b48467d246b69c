package audit

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/larder/pkg/httputil"
	"github.com/platinummonkey/larder/pkg/observability"
)

// Handlers provides the admin HTTP API over stored audit events
type Handlers struct {
	searcher Searcher
}

// NewHandlers creates new audit handlers
func NewHandlers(searcher Searcher) *Handlers {
	return &Handlers{searcher: searcher}
}

// RegisterRoutes registers audit routes on a router that is already gated for admins
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/audit", h.listEvents).Methods(http.MethodGet)
}

// listEvents handles GET /audit
func (h *Handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	events, err := h.searcher.Search(r.Context(), filter)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("audit search failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, "Audit events retrieved successfully", httputil.Envelope{
		"events": events,
		"count":  len(events),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// parseFilter parses a search filter from query parameters
func parseFilter(r *http.Request) (SearchFilter, error) {
	query := r.URL.Query()
	filter := SearchFilter{
		UserID:       query.Get("user_id"),
		Email:        query.Get("email"),
		ResourceType: ResourceType(query.Get("resource_type")),
		ResourceID:   query.Get("resource_id"),
	}

	var err error
	if filter.StartTime, err = httputil.ParseQueryTime(r, "start_time"); err != nil {
		return filter, err
	}
	if filter.EndTime, err = httputil.ParseQueryTime(r, "end_time"); err != nil {
		return filter, err
	}

	for _, et := range httputil.ParseQueryList(r, "event_types") {
		filter.EventTypes = append(filter.EventTypes, EventType(et))
	}

	if s := query.Get("status"); s != "" {
		status := EventStatus(s)
		filter.Status = &status
	}

	if filter.Limit, err = httputil.ParseQueryInt(r, "limit", DefaultSearchLimit); err != nil {
		return filter, err
	}
	filter.Limit = clampLimit(filter.Limit)

	if filter.Offset, err = httputil.ParseQueryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return filter, nil
}
