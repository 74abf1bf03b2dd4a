package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/syawaryo/kawasetu-copy-sub000/internal/docgen"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/excel"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/extraction"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/ledger"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/ocr"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/renderer"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type generateRequest struct {
	Slot   string             `json:"slot"`
	Header map[string]string  `json:"header"`
	Rows   []ledger.LedgerRow `json:"rows"`
}

type generateResponse struct {
	URL        string   `json:"url,omitempty"`
	Unmapped   []string `json:"unmapped,omitempty"`
	FieldCount int      `json:"fieldCount"`
	Superseded bool     `json:"superseded,omitempty"`
}

func (s *Server) generateDocument(c *gin.Context) {
	templateID := c.Param("template")

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Slot == "" {
		req.Slot = templateID
	}

	res, err := s.generator.Generate(c.Request.Context(), docgen.Request{
		TemplateID: templateID,
		Slot:       req.Slot,
		Header:     req.Header,
		Rows:       req.Rows,
	})
	switch {
	case err == nil:
	case errors.Is(err, docgen.ErrUnknownTemplate):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown template"})
		return
	case errors.Is(err, renderer.ErrTemplateLoad):
		s.logger.Error("template preparation failed",
			zap.String("template", templateID), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "template could not be prepared"})
		return
	default:
		s.logger.Error("document generation failed",
			zap.String("template", templateID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "document generation failed"})
		return
	}

	resp := generateResponse{
		Unmapped:   res.Unmapped,
		FieldCount: res.FieldCount,
		Superseded: res.Superseded,
	}
	if res.Handle != nil {
		resp.URL = res.Handle.URL()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) downloadDocument(c *gin.Context) {
	h, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.Data(http.StatusOK, h.ContentType, h.Data)
}

func (s *Server) revokeDocument(c *gin.Context) {
	s.store.Revoke(c.Param("id"))
	c.Status(http.StatusNoContent)
}

type aggregateRequest struct {
	Sources        []ledger.OrderSource `json:"sources"`
	PlannedOrder   string               `json:"plannedOrder"`
	ContractAmount string               `json:"contractAmount"`
}

func (s *Server) aggregateLedger(c *gin.Context) {
	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	c.JSON(http.StatusOK, ledger.Aggregate(req.Sources, req.PlannedOrder, req.ContractAmount))
}

type paymentSlipRequest struct {
	ProjectName string          `json:"projectName"`
	Rows        []ledger.PayRow `json:"rows"`
}

func (s *Server) buildPaymentSlip(c *gin.Context) {
	var req paymentSlipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	header := ledger.NewPaymentHeader(time.Now())
	header.ProjectName = req.ProjectName

	c.JSON(http.StatusOK, gin.H{
		"header": header,
		"totals": ledger.SumPayments(req.Rows),
	})
}

type budgetSheetRequest struct {
	Slot   string                  `json:"slot"`
	Header excel.BudgetSheetHeader `json:"header"`
	Rows   []ledger.LedgerRow      `json:"rows"`
}

func (s *Server) exportBudgetSheet(c *gin.Context) {
	var req budgetSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Slot == "" {
		req.Slot = "budget-sheet"
	}

	data, err := s.exporter.Export(req.Header, req.Rows)
	if err != nil {
		s.logger.Error("budget sheet export failed", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "workbook could not be prepared"})
		return
	}

	h := s.store.PublishNow(req.Slot, data, xlsxContentType)
	c.JSON(http.StatusOK, gin.H{"url": h.URL()})
}

func (s *Server) analyzeDocument(c *gin.Context) {
	if s.ocrClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document analysis is not configured"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file upload"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file upload"})
		return
	}
	defer f.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	enhance := c.PostForm("enhance") == "true" && strings.HasPrefix(contentType, "image/")

	var document []byte
	if enhance {
		document, err = ocr.EnhanceImage(f)
		contentType = "image/jpeg"
	} else {
		document, err = io.ReadAll(f)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file upload"})
		return
	}

	result, err := s.ocrClient.Analyze(c.Request.Context(), document, contentType)
	if err != nil {
		s.logger.Error("document analysis failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "document analysis failed"})
		return
	}

	mapped := extraction.Map(result.Fields)
	c.JSON(http.StatusOK, gin.H{
		"header":   mapped.Header,
		"rows":     mapped.Rows,
		"regions":  mapped.Regions,
		"pageSize": result.PageSize,
	})
}
