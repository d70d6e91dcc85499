package jobs

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWarmupHandlerEnqueues(t *testing.T) {
	calls := 0
	h := WarmupHandler(func() error {
		calls++
		return nil
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/jobs/stats-warmup", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, 1, calls)
}

func TestWarmupHandlerEnqueueFailure(t *testing.T) {
	h := WarmupHandler(func() error { return errors.New("redis down") })

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/jobs/stats-warmup", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
