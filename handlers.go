package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type api struct {
	svc            *Service
	log            zerolog.Logger
	maxUploadBytes int64
}

func newRouter(svc *Service, cfg Config, log zerolog.Logger) *gin.Engine {
	h := &api{svc: svc, log: log, maxUploadBytes: cfg.MaxUploadBytes}

	r := gin.New()
	r.Use(requestID(), requestLogger(log), gin.Recovery())

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", h.healthCheck)

	g := r.Group("/api")
	g.POST("/files", h.uploadFile)
	g.GET("/files", h.listFiles)
	g.DELETE("/files/:id", h.deleteFile)
	g.GET("/transactions", h.listTransactions)
	g.DELETE("/transactions", h.clearTransactions)
	g.PATCH("/transactions/:id", h.updateTransaction)
	g.DELETE("/transactions/:id", h.deleteTransaction)
	g.GET("/categories", h.listCategories)
	g.POST("/seed", h.seedCategories)
	g.GET("/analytics/spend-by-category", h.spendByCategory)
	g.GET("/analytics/monthly-category-totals", h.monthlyCategoryTotals)

	return r
}

// healthCheck handles the health check endpoint
func (h *api) healthCheck(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "statement-ledger",
	})
}

// uploadFile ingests a multipart CSV upload sent in the "file" field
func (h *api) uploadFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, validationErrorf("No file uploaded"))
		return
	}
	if fh.Size > h.maxUploadBytes {
		h.fail(c, validationErrorf(fmt.Sprintf("File exceeds %d bytes", h.maxUploadBytes)))
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.fail(c, validationErrorf(fmt.Sprintf("Failed to read CSV: %v", err)))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		h.fail(c, validationErrorf(fmt.Sprintf("Failed to read CSV: %v", err)))
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		h.fail(c, validationErrorf(fmt.Sprintf("File exceeds %d bytes", h.maxUploadBytes)))
		return
	}

	res, err := h.svc.Ingest(c.Request.Context(), data, fh.Filename)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "ok", "rows": res.Rows, "file_id": res.SourceFileID})
}

func (h *api) listFiles(c *gin.Context) {
	files, err := h.svc.ListSourceFiles(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func (h *api) deleteFile(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteSourceFile(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File deleted"})
}

// listTransactions retrieves transactions, optionally limited to ?month=YYYY-MM
func (h *api) listTransactions(c *gin.Context) {
	txns, err := h.svc.ListTransactions(c.Request.Context(), c.Query("month"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

// updateTransaction reassigns the category of one transaction
func (h *api) updateTransaction(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req struct {
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validationErrorf("invalid request body"))
		return
	}

	t, err := h.svc.UpdateCategory(c.Request.Context(), id, req.Category)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// deleteTransaction removes a transaction by ID
func (h *api) deleteTransaction(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteTransaction(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}

func (h *api) clearTransactions(c *gin.Context) {
	n, err := h.svc.ClearTransactions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "All transactions deleted", "deleted": n})
}

// listCategories retrieves all categories in evaluation order
func (h *api) listCategories(c *gin.Context) {
	cats, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

// seedCategories seeds the default catalog; ?reset=1 wipes existing categories first
func (h *api) seedCategories(c *gin.Context) {
	reset := c.Query("reset") == "1" || c.Query("reset") == "true"
	added, err := h.svc.SeedDefaultCategories(c.Request.Context(), reset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "added": added})
}

func (h *api) spendByCategory(c *gin.Context) {
	data, err := h.svc.SpendByCategory(c.Request.Context(), c.Query("month"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *api) monthlyCategoryTotals(c *gin.Context) {
	data, err := h.svc.MonthlyCategoryTotals(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *api) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// fail maps service errors onto status codes.
func (h *api) fail(c *gin.Context, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Reason})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
