package handlers

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestHandler() *Handler {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	return NewHandler(rand.New(rand.NewSource(1)), logger)
}

func trainingData(n int) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(7))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x0 := rng.Float64() * 10
		X[i] = []float64{x0}
		y[i] = 3*x0 + 1
	}
	return X, y
}

func TestHandlePredict(t *testing.T) {
	handler := setupTestHandler()

	X, y := trainingData(50)
	req := PredictRequest{
		Features: X,
		Targets:  y,
		Inputs:   [][]float64{{2}, {5}},
		Models:   5,
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq := httptest.NewRequest("POST", "/api/ensemble/predict", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandlePredict(w, httpReq)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})

	predictions := data["predictions"].([]interface{})
	require.Len(t, predictions, 2)
	assert.InDelta(t, 7.0, predictions[0].(float64), 0.5)
	assert.InDelta(t, 16.0, predictions[1].(float64), 0.5)

	weights := data["weights"].([]interface{})
	assert.Len(t, weights, 5)
	assert.NotNil(t, data["diversity"])
}

func TestHandlePredictValidationWeights(t *testing.T) {
	handler := setupTestHandler()

	X, y := trainingData(60)
	req := PredictRequest{
		Features:    X[:40],
		Targets:     y[:40],
		Inputs:      [][]float64{{1}},
		Models:      3,
		ValFeatures: X[40:],
		ValTargets:  y[40:],
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq := httptest.NewRequest("POST", "/api/ensemble/predict", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandlePredict(w, httpReq)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})

	var sum float64
	for _, v := range data["weights"].([]interface{}) {
		sum += v.(float64)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestHandlePredictBadTrainingSet(t *testing.T) {
	handler := setupTestHandler()

	body, err := json.Marshal(PredictRequest{Inputs: [][]float64{{1}}})
	require.NoError(t, err)

	httpReq := httptest.NewRequest("POST", "/api/ensemble/predict", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandlePredict(w, httpReq)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePredictInvalidBody(t *testing.T) {
	handler := setupTestHandler()

	httpReq := httptest.NewRequest("POST", "/api/ensemble/predict", bytes.NewReader([]byte(`{`)))
	w := httptest.NewRecorder()

	handler.HandlePredict(w, httpReq)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterRoutes(t *testing.T) {
	handler := setupTestHandler()
	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	}, "RegisterRoutes should not panic")
}
