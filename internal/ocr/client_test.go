package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenAnalysis_ScalarsAndArrays(t *testing.T) {
	square := []float64{1, 1, 2, 1, 2, 2, 1, 2}
	analysis := &analyzeResult{
		Pages: []pageInfo{{Width: 8.27, Height: 11.69, Unit: "inch"}},
		Documents: []documentInfo{{
			Fields: map[string]fieldValue{
				"totalAmount": {
					Type:            "number",
					Content:         "110,000",
					BoundingRegions: []boundingRegion{{PageNumber: 1, Polygon: square}},
				},
				"noRegion": {Type: "string", Content: "dropped"},
				"invoiceItems": {
					Type: "array",
					ValueArray: []fieldValue{
						{
							Type: "object",
							ValueObject: map[string]fieldValue{
								"itemNo": {
									Content:         "1",
									BoundingRegions: []boundingRegion{{PageNumber: 1, Polygon: square}},
								},
								"itemAmount": {
									Content:         "100",
									BoundingRegions: []boundingRegion{{PageNumber: 1, Polygon: square}},
								},
							},
						},
					},
				},
			},
		}},
	}

	got := flattenAnalysis(analysis)

	assert.Equal(t, 8.27, got.PageSize.Width)
	assert.Equal(t, 11.69, got.PageSize.Height)

	assert.Equal(t, "110,000", got.Fields["totalAmount"].Content)
	assert.Equal(t, []float64{1, 2, 2, 1}, got.Fields["totalAmount"].X)
	assert.Equal(t, []float64{1, 1, 2, 2}, got.Fields["totalAmount"].Y)

	_, ok := got.Fields["noRegion"]
	assert.False(t, ok, "fields without a polygon are not forwarded")

	assert.Equal(t, "1", got.Fields["invoiceItems[1].itemNo"].Content)
	assert.Equal(t, "100", got.Fields["invoiceItems[1].itemAmount"].Content)
}

func TestFlattenAnalysis_Defaults(t *testing.T) {
	got := flattenAnalysis(&analyzeResult{})

	assert.Equal(t, 8.5, got.PageSize.Width)
	assert.Equal(t, float64(11), got.PageSize.Height)
	assert.Empty(t, got.Fields)
}

func TestPolygonCoords(t *testing.T) {
	tests := []struct {
		name    string
		regions []boundingRegion
		ok      bool
	}{
		{name: "no_regions", regions: nil, ok: false},
		{name: "too_few_points", regions: []boundingRegion{{Polygon: []float64{1, 1, 2, 2}}}, ok: false},
		{name: "odd_length", regions: []boundingRegion{{Polygon: []float64{1, 1, 2, 2, 3, 3, 4, 4, 5}}}, ok: false},
		{name: "square", regions: []boundingRegion{{Polygon: []float64{0, 0, 1, 0, 1, 1, 0, 1}}}, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ok := polygonCoords(tt.regions)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestClient_AnalyzePolling(t *testing.T) {
	var polls atomic.Int32

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("POST /formrecognizer/documentModels/prebuilt-invoice:analyze", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))
		w.Header().Set("Operation-Location", server.URL+"/operations/1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 2 {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "running"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "succeeded",
			"analyzeResult": map[string]any{
				"pages": []map[string]any{{"width": 8.5, "height": 11.0, "unit": "inch"}},
				"documents": []map[string]any{{
					"fields": map[string]any{
						"totalAmount": map[string]any{
							"type":    "number",
							"content": "42",
							"boundingRegions": []map[string]any{
								{"pageNumber": 1, "polygon": []float64{0, 0, 1, 0, 1, 1, 0, 1}},
							},
						},
					},
				}},
			},
		})
	})

	client := NewClient(server.URL, "secret", "", nil)
	client.pollInterval = time.Millisecond

	got, err := client.Analyze(context.Background(), []byte("%PDF"), "application/pdf")

	require.NoError(t, err)
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
	assert.Equal(t, "42", got.Fields["totalAmount"].Content)
}

func TestClient_AnalyzeFailure(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("POST /formrecognizer/documentModels/prebuilt-invoice:analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", server.URL+"/operations/1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "failed",
			"error":  map[string]any{"message": "unsupported content"},
		})
	})

	client := NewClient(server.URL, "secret", "", nil)
	client.pollInterval = time.Millisecond

	_, err := client.Analyze(context.Background(), []byte("junk"), "application/pdf")

	assert.ErrorContains(t, err, "unsupported content")
}

func TestClient_SubmitRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "wrong", "", nil)

	_, err := client.Analyze(context.Background(), []byte("%PDF"), "application/pdf")

	assert.ErrorContains(t, err, "status 401")
}

func TestEnhanceImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))

	out, err := EnhanceImage(&buf)

	require.NoError(t, err)
	assert.NotEmpty(t, out)
	// JPEG SOI marker
	assert.Equal(t, []byte{0xFF, 0xD8}, out[:2])
}

func TestEnhanceImage_InvalidInput(t *testing.T) {
	_, err := EnhanceImage(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}
