package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"healthbot/internal/core"
	"healthbot/internal/db"
	"healthbot/pkg"
)

func (s *Server) symptomRecord(c *gin.Context) {
	var in core.SymptomInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := s.symptoms.Record(c.Request.Context(), mustUser(c).ID, in)
	if err != nil {
		s.log.Error("record symptom failed", "error", err)
		fail(c, http.StatusInternalServerError, "Could not record symptom")
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) symptomList(c *gin.Context) {
	daysBack := intQuery(c, "days_back", 30)
	f := db.SymptomFilter{
		Since:       time.Now().AddDate(0, 0, -daysBack),
		Category:    c.Query("category"),
		MinSeverity: intQuery(c, "min_severity", 0),
		Limit:       intQuery(c, "limit", 50),
		Offset:      intQuery(c, "offset", 0),
	}
	if f.Category != "" && !pkg.ValidCategory(f.Category) {
		fail(c, http.StatusBadRequest, "unknown category")
		return
	}
	list, err := s.symptoms.List(c.Request.Context(), mustUser(c).ID, f)
	if err != nil {
		s.log.Error("list symptoms failed", "error", err)
		fail(c, http.StatusInternalServerError, "Could not list symptoms")
		return
	}
	c.JSON(http.StatusOK, gin.H{"symptoms": list, "count": len(list)})
}

func (s *Server) symptomCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": pkg.SymptomCategories()})
}

type analyzeRequest struct {
	SymptomIDs        []int64 `json:"symptom_ids" binding:"required,min=1"`
	AdditionalContext string  `json:"additional_context"`
}

func (s *Server) symptomAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.symptoms.Analyze(c.Request.Context(), mustUser(c).ID, req.SymptomIDs, req.AdditionalContext)
	if errors.Is(err, core.ErrSymptomsMissing) {
		fail(c, http.StatusNotFound, "One or more symptoms not found")
		return
	}
	if err != nil {
		s.log.Error("symptom analysis failed", "error", err)
		fail(c, http.StatusInternalServerError, "Could not analyze symptoms")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) symptomStats(c *gin.Context) {
	stats, err := s.symptoms.ComputeStats(c.Request.Context(), mustUser(c).ID, intQuery(c, "days_back", 30))
	if err != nil {
		s.log.Error("symptom stats failed", "error", err)
		fail(c, http.StatusInternalServerError, "Could not compute statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) symptomUpdate(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in core.SymptomInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := s.symptoms.Update(c.Request.Context(), mustUser(c).ID, id, in)
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, "Symptom not found")
		return
	}
	if err != nil {
		s.log.Error("update symptom failed", "symptom_id", id, "error", err)
		fail(c, http.StatusInternalServerError, "Could not update symptom")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) symptomDelete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	err := s.symptoms.Delete(c.Request.Context(), mustUser(c).ID, id)
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, "Symptom not found")
		return
	}
	if err != nil {
		s.log.Error("delete symptom failed", "symptom_id", id, "error", err)
		fail(c, http.StatusInternalServerError, "Could not delete symptom")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Symptom deleted"})
}
