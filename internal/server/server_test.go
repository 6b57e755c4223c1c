package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/precedent/internal/domain"
)

func newTestServer(t *testing.T) *Server {
	s, err := New(Config{
		Log:      zerolog.New(nil).Level(zerolog.Disabled),
		Port:     0,
		CacheTTL: time.Minute,
		Seed:     1,
	})
	require.NoError(t, err)
	return s
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "precedent", response["service"])
}

func TestRoutesAreMounted(t *testing.T) {
	s := newTestServer(t)

	// Regime classification round-trips through the full router stack
	req := httptest.NewRequest("GET", "/api/regime/classify?volatility=0.9&momentum=0.5&volume=0.7&trend_strength=0.3", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Analog search rejects an empty query through the mounted handler
	req = httptest.NewRequest("POST", "/api/analogs/search", bytes.NewReader([]byte(`{}`)))
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/nope", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// The clustering and ensemble paths all draw from the server's one random
// stream, and requests arrive in parallel. Overlapping calls must stay safe
// and independent.
func TestConcurrentStochasticRequests(t *testing.T) {
	s := newTestServer(t)

	outcomes := make([]*domain.FeatureRecord, 0, 12)
	for i := 0; i < 12; i++ {
		outcomes = append(outcomes, &domain.FeatureRecord{
			ID: fmt.Sprintf("outcome-%d", i),
			Numeric: map[string]float64{
				domain.AttrSuccessRate: float64(i) / 12.0,
				domain.AttrProfitLoss:  float64(i%3) - 1,
				domain.AttrVolatility:  float64(i) / 20.0,
			},
		})
	}
	clusterBody, err := json.Marshal(map[string]interface{}{"outcomes": outcomes})
	require.NoError(t, err)

	predictBody, err := json.Marshal(map[string]interface{}{
		"features": [][]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}},
		"targets":  []float64{0, 1, 2, 3, 4, 5},
		"inputs":   [][]float64{{2.5, 2.5}},
		"models":   5,
	})
	require.NoError(t, err)

	post := func(path string, body []byte) int {
		req := httptest.NewRequest("POST", path, bytes.NewReader(body))
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, req)
		return w.Code
	}

	var wg sync.WaitGroup
	codes := make(chan int, 16)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- post("/api/analogs/cluster", clusterBody)
			codes <- post("/api/ensemble/predict", predictBody)
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
}

func TestShutdownStopsListener(t *testing.T) {
	s := newTestServer(t)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-errCh:
		// Graceful shutdown surfaces as ErrServerClosed, which callers must
		// not treat as a startup failure.
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after shutdown")
	}
}
