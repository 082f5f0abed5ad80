package ui

import (
	stderrors "errors"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"custdash/domain/purchase"
	"custdash/internal/analysis"
	"custdash/internal/dataset"
	"custdash/internal/errors"
	"custdash/internal/session"
	"custdash/ui/middleware"
	"custdash/ui/services"
)

var errSessionMissing = stderrors.New("request has no session")

// dashboardPage is the data of dashboard.html
type dashboardPage struct {
	Kinds       []analysis.Kind
	Request     viewRequest
	HasDataset  bool
	Info        dataset.LoadInfo
	Options     analysis.FilterOptions
	Rows        int
	Tables      []services.TableView
	ExportURL   template.URL
	Error       string
	UploadError string
	MaxUploadMB int64

	CustomerTopK     analysis.Bounds
	ProductTopK      analysis.Bounds
	BrandProductTopK analysis.Bounds
	KCustomers       int
	KProducts        int
	KBrandProducts   int
}

func (s *Server) newDashboardPage(sess session.Session) dashboardPage {
	return dashboardPage{
		Kinds:            analysis.Kinds,
		Request:          viewRequest{Kind: analysis.KindCustomer},
		HasDataset:       sess.HasDataset(),
		Info:             sess.Info,
		MaxUploadMB:      s.config.Upload.MaxBytes / (1024 * 1024),
		CustomerTopK:     analysis.CustomerTopK,
		ProductTopK:      analysis.ProductTopK,
		BrandProductTopK: analysis.BrandProductTopK,
		KCustomers:       analysis.CustomerTopK.Default,
		KProducts:        analysis.ProductTopK.Default,
		KBrandProducts:   analysis.BrandProductTopK.Default,
	}
}

// handleDashboard renders the filters and the tables of the selected analysis
func (s *Server) handleDashboard(c *gin.Context) {
	sess, ok := middleware.Current(c)
	if !ok {
		s.respondError(c, errSessionMissing)
		return
	}
	page := s.newDashboardPage(sess)
	if !sess.HasDataset() {
		s.renderTemplate(c, http.StatusOK, "dashboard.html", page)
		return
	}

	table := sess.Table
	page.Options = analysis.Options(table)

	kind := analysis.KindCustomer
	if v := c.Query("kind"); v != "" {
		k, err := analysis.ParseKind(v)
		if err != nil {
			page.Error = userMessage(err)
			s.renderTemplate(c, statusForError(err), "dashboard.html", page)
			return
		}
		kind = k
	}

	req, err := parseViewRequest(c, table, kind)
	page.Request = req
	if err != nil {
		page.Error = userMessage(err)
		s.renderTemplate(c, statusForError(err), "dashboard.html", page)
		return
	}
	page.KCustomers = analysis.ClampK(req.Params.KCustomers, analysis.CustomerTopK)
	page.KProducts = analysis.ClampK(req.Params.KProducts, analysis.ProductTopK)
	page.KBrandProducts = analysis.ClampK(req.Params.KBrandProducts, analysis.BrandProductTopK)

	result, err := analysis.Run(kind, table, req.Spec, req.Params)
	if err != nil {
		page.Error = userMessage(err)
		s.renderTemplate(c, statusForError(err), "dashboard.html", page)
		return
	}
	page.Rows = result.Rows
	page.Tables = s.render.Tables(result)
	page.ExportURL = template.URL("/api/export/" + string(kind) + "?" + c.Request.URL.RawQuery)
	s.renderTemplate(c, http.StatusOK, "dashboard.html", page)
}

// handleUpload loads the posted file into the session. A failed upload keeps the previous table.
func (s *Server) handleUpload(c *gin.Context) {
	sess, ok := middleware.Current(c)
	if !ok {
		s.respondError(c, errSessionMissing)
		return
	}

	fail := func(err error) {
		log.Printf("[Upload] FAILED for session %s: %v", sess.ID, err)
		if wantsJSON(c) {
			s.respondError(c, err)
			return
		}
		page := s.newDashboardPage(sess)
		if sess.HasDataset() {
			page.Options = analysis.Options(sess.Table)
		}
		page.UploadError = userMessage(err)
		s.renderTemplate(c, statusForError(err), "dashboard.html", page)
	}

	// leave room for the multipart envelope around the file
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.Upload.MaxBytes+1<<20)

	file, header, err := c.Request.FormFile("dataset")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			fail(errors.InvalidInputf(err, "file exceeds the %d MB limit", s.config.Upload.MaxBytes/(1024*1024)))
			return
		}
		fail(errors.InvalidInputf(err, "no file uploaded"))
		return
	}
	defer file.Close()

	log.Printf("[Upload] Session %s uploading %s (%d bytes)", sess.ID, header.Filename, header.Size)
	table, info, err := s.processor.Load(c.Request.Context(), file, header.Filename)
	if err != nil {
		fail(err)
		return
	}
	if err := s.sessions.SetTable(sess.ID, table, info); err != nil {
		fail(err)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{
			"filename": info.Filename,
			"rows":     info.Rows,
			"hash":     info.Hash.String(),
			"hasEmail": table.HasEmail,
			"variant":  table.Variant,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// sessionDataset resolves the loaded table of the request's session through the manager, so an
// expired or logged-out session is never served from the request snapshot.
func (s *Server) sessionDataset(c *gin.Context) (*purchase.Table, dataset.LoadInfo, error) {
	sess, ok := middleware.Current(c)
	if !ok {
		return nil, dataset.LoadInfo{}, errSessionMissing
	}
	return s.sessions.Dataset(sess.ID)
}
