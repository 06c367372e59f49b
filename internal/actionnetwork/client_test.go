package actionnetwork_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/UnknownOlympus/wardtagger/internal/actionnetwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const apiKey = "test-api-key"

func newTestClient(t *testing.T, handler http.HandlerFunc) *actionnetwork.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return actionnetwork.NewClientWithHTTP(srv.Client(), srv.URL, apiKey, rate.NewLimiter(rate.Inf, 0), slog.Default())
}

func TestListPeople(t *testing.T) {
	t.Parallel()

	t.Run("parses people and rejects records without identifier", func(t *testing.T) {
		t.Parallel()
		since := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/people", r.URL.Path)
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			assert.Equal(t, "modified_date gt '2024-01-02T15:04:05'", r.URL.Query().Get("filter"))
			assert.Equal(t, apiKey, r.Header.Get("OSDI-API-Token"))

			_, _ = io.WriteString(w, `{
				"page": 2,
				"total_pages": 3,
				"_embedded": {"osdi:people": [
					{"identifiers": ["action_network:abc"], "custom_fields": {"Aldermanic Ward": "12"}},
					{"identifiers": ["other:xyz"]}
				]}
			}`)
		})

		page, err := client.ListPeople(t.Context(), 2, &since)

		require.NoError(t, err)
		require.Len(t, page.People, 1)
		assert.Equal(t, "abc", page.People[0].Member.ID)
		require.Len(t, page.Rejected, 1)
		require.ErrorIs(t, page.Rejected[0].Err, actionnetwork.ErrNoIdentifier)
		assert.Equal(t, 3, page.TotalPages)
		assert.False(t, page.Last())
	})

	t.Run("no filter without since", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.False(t, r.URL.Query().Has("filter"))
			_, _ = io.WriteString(w, `{"page": 1, "total_pages": 1, "_embedded": {"osdi:people": []}}`)
		})

		page, err := client.ListPeople(t.Context(), 1, nil)

		require.NoError(t, err)
		assert.Empty(t, page.People)
		assert.True(t, page.Last())
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})

		_, err := client.ListPeople(t.Context(), 1, nil)

		require.ErrorIs(t, err, actionnetwork.ErrUnexpectedStatus)
		assert.Contains(t, err.Error(), "failed to list people page 1")
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `not json`)
		})

		_, err := client.ListPeople(t.Context(), 1, nil)

		require.ErrorContains(t, err, "failed to decode response")
	})
}

func TestGetPerson(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/people/abc", r.URL.Path)
			_, _ = io.WriteString(w, `{"identifiers": ["action_network:abc"], "postal_addresses": [{"postal_code": "60601"}]}`)
		})

		person, err := client.GetPerson(t.Context(), "abc")

		require.NoError(t, err)
		assert.Equal(t, "abc", person.Member.ID)
		assert.Equal(t, intPtr(60601), person.Member.Zipcode)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.NotFound(w, nil)
		})

		_, err := client.GetPerson(t.Context(), "missing")

		require.ErrorIs(t, err, actionnetwork.ErrUnexpectedStatus)
		require.ErrorIs(t, err, actionnetwork.ErrNotFound)
	})

	t.Run("record without identifier", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"identifiers": []}`)
		})

		_, err := client.GetPerson(t.Context(), "abc")

		require.ErrorIs(t, err, actionnetwork.ErrNoIdentifier)
	})
}

func TestListTags(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tags", r.URL.Path)
		_, _ = io.WriteString(w, `{
			"page": 1,
			"total_pages": 4,
			"_embedded": {"osdi:tags": [
				{"identifiers": ["action_network:tag-1"], "name": "Chicago Ward 1"},
				{"identifiers": [], "name": "Broken"},
				{"identifiers": ["action_network:tag-x"], "name": "Volunteer"}
			]}
		}`)
	})

	page, err := client.ListTags(t.Context(), 1)

	require.NoError(t, err)
	assert.Equal(t, 4, page.TotalPages)
	assert.Equal(t, []actionnetwork.Tag{
		{ID: "tag-1", Name: "Chicago Ward 1"},
		{ID: "tag-x", Name: "Volunteer"},
	}, page.Tags)
}

func TestListTaggings(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/people/abc/taggings", r.URL.Path)
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = io.WriteString(w, `{"page": 1, "total_pages": 2, "_embedded": {"osdi:taggings": [
				{"_links": {"osdi:tag": {"href": "https://actionnetwork.org/api/v2/tags/tag-1"}}},
				{"_links": {"osdi:tag": {"href": ""}}}
			]}}`)
		default:
			_, _ = io.WriteString(w, `{"page": 2, "total_pages": 2, "_embedded": {"osdi:taggings": [
				{"_links": {"osdi:tag": {"href": "https://actionnetwork.org/api/v2/tags/tag-7/"}}}
			]}}`)
		}
	})

	tagIDs, err := client.ListTaggings(t.Context(), "abc")

	require.NoError(t, err)
	assert.Equal(t, []string{"tag-1", "tag-7"}, tagIDs)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAddTagging(t *testing.T) {
	t.Parallel()

	t.Run("posts the person link", func(t *testing.T) {
		t.Parallel()
		var personHref string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/tags/tag-7/taggings", r.URL.Path)
			assert.Equal(t, "true", r.URL.Query().Get("background_request"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]map[string]map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			personHref = body["_links"]["osdi:person"]["href"]
			w.WriteHeader(http.StatusOK)
		})

		require.NoError(t, client.AddTagging(t.Context(), "tag-7", "abc"))
		assert.Regexp(t, `^http://127\.0\.0\.1:\d+/people/abc$`, personHref)
	})

	t.Run("rejected", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})

		err := client.AddTagging(t.Context(), "tag-7", "abc")

		require.ErrorIs(t, err, actionnetwork.ErrUnexpectedStatus)
	})
}

func TestRemoveTagging(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/tags/tag-7/taggings/abc", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("background_request"))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.RemoveTagging(t.Context(), "tag-7", "abc"))
}
