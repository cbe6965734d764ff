package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"healthbot/internal/core"
	"healthbot/internal/db"
	"healthbot/internal/pdf"
)

type generateReportRequest struct {
	ConversationID int64  `json:"conversation_id" binding:"required"`
	ReportType     string `json:"report_type"`
}

func validReportType(t string) bool {
	switch t {
	case core.ReportInitialConsultation, core.ReportFollowUp, core.ReportSymptomTracking:
		return true
	}
	return false
}

func (s *Server) reportGenerate(c *gin.Context) {
	var req generateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.ReportType == "" {
		req.ReportType = core.ReportInitialConsultation
	}
	if !validReportType(req.ReportType) {
		fail(c, http.StatusBadRequest, "unknown report type")
		return
	}
	rep, err := s.reports.Generate(c.Request.Context(), mustUser(c).ID, req.ConversationID, req.ReportType)
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		s.log.Error("report generation failed", "conversation_id", req.ConversationID, "error", err)
		fail(c, http.StatusInternalServerError, "Could not generate report")
		return
	}
	c.JSON(http.StatusCreated, rep)
}

func (s *Server) reportList(c *gin.Context) {
	limit := intQuery(c, "limit", 20)
	offset := intQuery(c, "offset", 0)
	list, err := s.reports.List(c.Request.Context(), mustUser(c).ID, limit, offset)
	if err != nil {
		s.log.Error("list reports failed", "error", err)
		fail(c, http.StatusInternalServerError, "Could not list reports")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": list})
}

func (s *Server) reportGet(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	rep, err := s.reports.Get(c.Request.Context(), mustUser(c).ID, id)
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		s.log.Error("get report failed", "report_id", id, "error", err)
		fail(c, http.StatusInternalServerError, "Could not load report")
		return
	}
	c.JSON(http.StatusOK, rep)
}

// reportShared resolves a share code handed to a healthcare provider.
func (s *Server) reportShared(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if code == "" {
		fail(c, http.StatusBadRequest, "invalid share code")
		return
	}
	rep, err := s.reports.ByShareCode(c.Request.Context(), code)
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		s.log.Error("shared report lookup failed", "error", err)
		fail(c, http.StatusInternalServerError, "Could not load report")
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) reportDownload(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	user := mustUser(c)

	rep, err := s.reports.Get(ctx, user.ID, id)
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		s.log.Error("get report failed", "report_id", id, "error", err)
		fail(c, http.StatusInternalServerError, "Could not load report")
		return
	}

	conv, err := s.store.GetConversation(ctx, user.ID, rep.ConversationID)
	if err != nil {
		s.log.Error("get report conversation failed", "report_id", id, "error", err)
		fail(c, http.StatusInternalServerError, "Could not render report")
		return
	}

	out, err := pdf.Render(rep, user, conv.Title)
	if err != nil {
		s.log.Error("render report failed", "report_id", id, "error", err)
		fail(c, http.StatusInternalServerError, "Could not render report")
		return
	}

	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename="medical_report_%s.pdf"`, rep.ShareCode))
	c.Data(http.StatusOK, "application/pdf", out)
}
