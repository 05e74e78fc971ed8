package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/offnote/internal/apperr"
	"github.com/starford/offnote/internal/models"
)

var stamp = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL + "/api")
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("/api")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/notes", r.URL.Path)
		writeJSON(w, http.StatusOK, []models.RemoteNote{{ID: "a", Title: "A", UpdatedAt: stamp}})
	})

	notes, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "A", notes[0].Title)
	assert.True(t, notes[0].UpdatedAt.Equal(stamp))
}

func TestGet_NotFound(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notes/ghost", r.URL.Path)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "note not found"})
	})

	_, err := c.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "note not found", se.Message)
}

func TestCreateSendsFullBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in models.RemoteNote
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "n1", in.ID)
		assert.Equal(t, "body", in.Content)
		in.UpdatedAt = stamp
		writeJSON(w, http.StatusCreated, in)
	})

	out, err := c.Create(context.Background(), models.RemoteNote{ID: "n1", Title: "T", Content: "body"})
	require.NoError(t, err)
	assert.True(t, out.UpdatedAt.Equal(stamp))
}

func TestUpdateUsesPut(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/notes/n1", r.URL.Path)
		writeJSON(w, http.StatusOK, models.RemoteNote{ID: "n1", UpdatedAt: stamp})
	})

	_, err := c.Update(context.Background(), models.RemoteNote{ID: "n1"})
	require.NoError(t, err)
}

func TestStatusErrorMapping(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusConflict, apperr.ErrAlreadyExists},
		{http.StatusBadRequest, apperr.ErrInvalid},
		{http.StatusUnprocessableEntity, apperr.ErrInvalid},
	}
	for _, tc := range cases {
		c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, tc.code, map[string]string{"error": "nope"})
		})
		_, err := c.Create(context.Background(), models.RemoteNote{ID: "x"})
		assert.ErrorIs(t, err, tc.want, "status %d", tc.code)
	}
}

func TestServerErrorIsNotNotFound(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := c.Get(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestPingHitsRootHealth(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health/live" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, c.Ping(context.Background()))
}

func TestPing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url+"/api", WithTimeout(time.Second))
	require.NoError(t, err)
	assert.Error(t, c.Ping(context.Background()))
}

func TestRateLimitHonoursContext(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []models.RemoteNote{})
	})
	WithRateLimit(0.001, 1)(c)

	_, err := c.List(context.Background())
	require.NoError(t, err, "burst allows the first request")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.List(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
