package pkg

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteResponseBytes(t *testing.T) {
	w := httptest.NewRecorder()

	testJson := `{"verdict":"SweetSpot"}`
	WriteResponseBytes(w, ContentType.JSON, []byte(testJson), http.StatusCreated)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, ContentType.JSON, w.Header().Get("Content-Type"))
	assert.Equal(t, testJson, w.Body.String())
}

func TestWriteResponse(t *testing.T) {
	w := httptest.NewRecorder()

	WriteResponse(w, ContentType.CSV, "Date,Sport\n", http.StatusOK)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContentType.CSV, w.Header().Get("Content-Type"))
	assert.Equal(t, "Date,Sport\n", w.Body.String())
}

func TestWriteTextResponseOK(t *testing.T) {
	w := httptest.NewRecorder()

	WriteTextResponseOK(w, "ready")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContentType.Text, w.Header().Get("Content-Type"))
	assert.Equal(t, "ready", w.Body.String())
}

func TestWriteJSONResponseOK(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSONResponseOK(w, `{"state":"Ready"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContentType.JSON, w.Header().Get("Content-Type"))
	assert.Equal(t, `{"state":"Ready"}`, w.Body.String())
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, map[string]int{"sessions": 3}, http.StatusOK)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions":3}`, w.Body.String())

	w = httptest.NewRecorder()
	WriteJSON(w, math.NaN(), http.StatusOK)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
