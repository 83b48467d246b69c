package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSearcher for testing handlers
type mockSearcher struct {
	events []*Event
	err    error
	last   SearchFilter
}

func (m *mockSearcher) Search(ctx context.Context, filter SearchFilter) ([]*Event, error) {
	m.last = filter
	return m.events, m.err
}

func newTestRouter(s Searcher) *mux.Router {
	router := mux.NewRouter()
	NewHandlers(s).RegisterRoutes(router)
	return router
}

func TestHandlers_ListEvents(t *testing.T) {
	store := &mockSearcher{events: []*Event{
		{
			ID:        1,
			Timestamp: time.Now(),
			EventType: EventTypeAuthLogin,
			Status:    EventStatusSuccess,
			UserID:    "u-1",
			Email:     "a@x.io",
		},
	}}

	rec := httptest.NewRecorder()
	newTestRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit?limit=10&user_id=u-1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "Audit events retrieved successfully", response["message"])
	assert.Len(t, response["events"], 1)
	assert.Equal(t, float64(10), response["limit"])
	assert.Equal(t, "u-1", store.last.UserID)
}

func TestHandlers_ListEvents_BadQuery(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&mockSearcher{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit?start_time=yesterday", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlers_ListEvents_SearchError(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&mockSearcher{err: errors.New("pq: relation does not exist")}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestParseFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/audit?user_id=u-123&limit=50&offset=10&status=denied&resource_type=recipe&resource_id=r-1&email=a@x.io", nil)

	filter, err := parseFilter(req)
	require.NoError(t, err)

	assert.Equal(t, "u-123", filter.UserID)
	assert.Equal(t, "a@x.io", filter.Email)
	assert.Equal(t, 50, filter.Limit)
	assert.Equal(t, 10, filter.Offset)
	require.NotNil(t, filter.Status)
	assert.Equal(t, EventStatusDenied, *filter.Status)
	assert.Equal(t, ResourceTypeRecipe, filter.ResourceType)
	assert.Equal(t, "r-1", filter.ResourceID)
}

func TestParseFilter_Defaults(t *testing.T) {
	filter, err := parseFilter(httptest.NewRequest(http.MethodGet, "/audit?offset=-5", nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultSearchLimit, filter.Limit)
	assert.Equal(t, 0, filter.Offset)
	assert.Nil(t, filter.Status)

	filter, err = parseFilter(httptest.NewRequest(http.MethodGet, "/audit?limit=100000", nil))
	require.NoError(t, err)
	assert.Equal(t, MaxSearchLimit, filter.Limit)
}

func TestParseFilter_TimeRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/audit?start_time=2024-01-01T00:00:00Z&end_time=2024-01-31T23:59:59Z", nil)

	filter, err := parseFilter(req)
	require.NoError(t, err)
	require.NotNil(t, filter.StartTime)
	require.NotNil(t, filter.EndTime)
	assert.True(t, filter.StartTime.Before(*filter.EndTime))
}

func TestParseFilter_EventTypes(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/audit?event_types=auth.login,%20auth.logout", nil)

	filter, err := parseFilter(req)
	require.NoError(t, err)
	assert.Equal(t, []EventType{EventTypeAuthLogin, EventTypeAuthLogout}, filter.EventTypes)
}

func TestParseFilter_BadInts(t *testing.T) {
	_, err := parseFilter(httptest.NewRequest(http.MethodGet, "/audit?limit=ten", nil))
	assert.Error(t, err)

	_, err = parseFilter(httptest.NewRequest(http.MethodGet, "/audit?offset=x", nil))
	assert.Error(t, err)
}
