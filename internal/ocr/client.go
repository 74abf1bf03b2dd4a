// Package ocr calls the external document-understanding service and
// flattens its analysis result into the bracket-indexed field map the
// extraction mapper consumes.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/syawaryo/kawasetu-copy-sub000/internal/extraction"
)

const (
	apiVersion          = "2023-07-31"
	defaultModelID      = "prebuilt-invoice"
	defaultPollInterval = 2 * time.Second

	// Default page size in inches when the service omits page metadata.
	defaultPageWidth  = 8.5
	defaultPageHeight = 11
)

// PageSize is the analyzed page's dimensions in source-page units (inches).
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Result is a flattened analysis: field map keyed by scalar names and
// bracket-indexed row keys, plus the page size for overlay scaling.
type Result struct {
	Fields   map[string]extraction.Field `json:"fields"`
	PageSize PageSize                    `json:"pageSize"`
}

// Client talks to the document-understanding service.
type Client struct {
	httpClient   *http.Client
	endpoint     string
	apiKey       string
	modelID      string
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewClient creates a service client. modelID falls back to the prebuilt
// invoice model when empty.
func NewClient(endpoint, apiKey, modelID string, logger *zap.Logger) *Client {
	if modelID == "" {
		modelID = defaultModelID
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		endpoint:     strings.TrimRight(endpoint, "/"),
		apiKey:       apiKey,
		modelID:      modelID,
		pollInterval: defaultPollInterval,
		logger:       logger,
	}
}

// Analyze submits a document and polls the operation until it completes.
func (c *Client) Analyze(ctx context.Context, document []byte, contentType string) (*Result, error) {
	operationURL, err := c.submit(ctx, document, contentType)
	if err != nil {
		return nil, err
	}
	analysis, err := c.poll(ctx, operationURL)
	if err != nil {
		return nil, err
	}
	return flattenAnalysis(analysis), nil
}

func (c *Client) submit(ctx context.Context, document []byte, contentType string) (string, error) {
	url := fmt.Sprintf("%s/formrecognizer/documentModels/%s:analyze?api-version=%s", c.endpoint, c.modelID, apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("analyze rejected: status %d: %s", resp.StatusCode, body)
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", fmt.Errorf("analyze accepted but no Operation-Location header")
	}
	return operationURL, nil
}

func (c *Client) poll(ctx context.Context, operationURL string) (*analyzeResult, error) {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build poll request: %w", err)
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("poll operation: %w", err)
		}

		var op operationStatus
		decodeErr := json.NewDecoder(resp.Body).Decode(&op)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("decode operation status: %w", decodeErr)
		}

		switch op.Status {
		case "succeeded":
			if op.AnalyzeResult == nil {
				return nil, fmt.Errorf("operation succeeded without a result")
			}
			return op.AnalyzeResult, nil
		case "failed":
			return nil, fmt.Errorf("analysis failed: %s", op.Error.Message)
		}

		c.logger.Debug("analysis pending", zap.String("status", op.Status))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// Service response shapes, limited to what the pipeline consumes.

type operationStatus struct {
	Status        string         `json:"status"`
	AnalyzeResult *analyzeResult `json:"analyzeResult"`
	Error         struct {
		Message string `json:"message"`
	} `json:"error"`
}

type analyzeResult struct {
	Pages     []pageInfo     `json:"pages"`
	Documents []documentInfo `json:"documents"`
}

type pageInfo struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
}

type documentInfo struct {
	Fields map[string]fieldValue `json:"fields"`
}

type fieldValue struct {
	Type            string                `json:"type"`
	Content         string                `json:"content"`
	BoundingRegions []boundingRegion      `json:"boundingRegions"`
	ValueArray      []fieldValue          `json:"valueArray"`
	ValueObject     map[string]fieldValue `json:"valueObject"`
}

type boundingRegion struct {
	PageNumber int       `json:"pageNumber"`
	Polygon    []float64 `json:"polygon"`
}

// flattenAnalysis converts the nested service result into the flat field
// map: arrays expand to name[index].column keys with a 1-based index, and
// only fields with a usable polygon (at least 4 points) are kept, matching
// the service contract the extraction mapper expects.
func flattenAnalysis(analysis *analyzeResult) *Result {
	result := &Result{
		Fields:   map[string]extraction.Field{},
		PageSize: PageSize{Width: defaultPageWidth, Height: defaultPageHeight},
	}

	if len(analysis.Pages) > 0 {
		if p := analysis.Pages[0]; p.Width > 0 && p.Height > 0 {
			result.PageSize = PageSize{Width: p.Width, Height: p.Height}
		}
	}
	if len(analysis.Documents) == 0 {
		return result
	}

	for key, value := range analysis.Documents[0].Fields {
		if value.Type == "array" {
			for i, item := range value.ValueArray {
				for column, cell := range item.ValueObject {
					if x, y, ok := polygonCoords(cell.BoundingRegions); ok {
						flatKey := fmt.Sprintf("%s[%d].%s", key, i+1, column)
						result.Fields[flatKey] = extraction.Field{Content: cell.Content, X: x, Y: y}
					}
				}
			}
			continue
		}
		if x, y, ok := polygonCoords(value.BoundingRegions); ok {
			result.Fields[key] = extraction.Field{Content: value.Content, X: x, Y: y}
		}
	}

	return result
}

// polygonCoords splits the service's flat x1,y1,x2,y2,... polygon into
// parallel coordinate slices. Fewer than 4 points means no usable region.
func polygonCoords(regions []boundingRegion) ([]float64, []float64, bool) {
	if len(regions) == 0 {
		return nil, nil, false
	}
	polygon := regions[0].Polygon
	if len(polygon) < 8 || len(polygon)%2 != 0 {
		return nil, nil, false
	}
	x := make([]float64, 0, len(polygon)/2)
	y := make([]float64, 0, len(polygon)/2)
	for i := 0; i+1 < len(polygon); i += 2 {
		x = append(x, polygon[i])
		y = append(y, polygon[i+1])
	}
	return x, y, true
}
