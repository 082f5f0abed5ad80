package ui

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"custdash/adapters/excel"
	"custdash/internal/analysis"
	"custdash/ui/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
}

// handleOptions lists the values offered by the filter widgets
func (s *Server) handleOptions(c *gin.Context) {
	table, info, err := s.sessionDataset(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"options": analysis.Options(table),
		"dataset": gin.H{
			"filename": info.Filename,
			"rows":     info.Rows,
			"hash":     info.Hash.String(),
			"loadedAt": info.LoadedAt,
		},
		"bounds": gin.H{
			"k_customers":      analysis.CustomerTopK,
			"k_products":       analysis.ProductTopK,
			"k_brand_products": analysis.BrandProductTopK,
		},
	})
}

// handleAnalysis runs one pipeline and returns its result as JSON
func (s *Server) handleAnalysis(c *gin.Context) {
	result, ok := s.runAnalysis(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleExport runs one pipeline and returns its tables as an Excel workbook
func (s *Server) handleExport(c *gin.Context) {
	result, ok := s.runAnalysis(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := excel.WriteWorkbook(&buf, services.Sheets(s.render.Tables(result))); err != nil {
		s.respondError(c, err)
		return
	}
	filename := fmt.Sprintf("custdash-%s-%s.xlsx", result.Kind, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// runAnalysis parses the request and runs the pipeline; on failure it has already responded.
func (s *Server) runAnalysis(c *gin.Context) (*analysis.Result, bool) {
	table, _, err := s.sessionDataset(c)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	kind, err := analysis.ParseKind(c.Param("kind"))
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	req, err := parseViewRequest(c, table, kind)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}

	start := time.Now()
	result, err := analysis.Run(kind, table, req.Spec, req.Params)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	s.logger.Debug("%s analysis over %d of %d rows in %s", kind, result.Rows, table.Len(), time.Since(start))
	return result, true
}
