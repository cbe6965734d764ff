package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"healthbot/internal/core"
	"healthbot/internal/db"
)

type startChatRequest struct {
	Message        string  `json:"message" binding:"required"`
	ChiefComplaint *string `json:"chief_complaint,omitempty"`
}

type sendMessageRequest struct {
	ConversationID int64  `json:"conversation_id" binding:"required"`
	Message        string `json:"message" binding:"required"`
}

func (s *Server) chatStart(c *gin.Context) {
	var req startChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.chat.Start(c.Request.Context(), mustUser(c).ID, req.Message, req.ChiefComplaint)
	if err != nil {
		s.log.Error("start conversation failed", "error", err)
		fail(c, http.StatusInternalServerError, "Could not start conversation")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) chatSend(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	user := mustUser(c)
	res, err := s.chat.Send(c.Request.Context(), user.ID, req.ConversationID, req.Message)
	switch {
	case errors.Is(err, db.ErrNotFound):
		fail(c, http.StatusNotFound, "Conversation not found")
		return
	case errors.Is(err, core.ErrConversationInactive):
		fail(c, http.StatusBadRequest, "Conversation is not active")
		return
	case err != nil:
		s.log.Error("send message failed", "conversation_id", req.ConversationID, "error", err)
		fail(c, http.StatusInternalServerError, "Could not process message")
		return
	}

	if res.DiagnosisReady {
		s.generateReportAsync(user.ID, req.ConversationID)
	}
	c.JSON(http.StatusOK, res)
}

// generateReportAsync kicks off diagnosis report generation without holding
// the chat response open. Losing the result on crash is acceptable; the
// user can regenerate explicitly.
func (s *Server) generateReportAsync(userID, conversationID int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := s.reports.ForConversation(ctx, conversationID); err == nil {
			return
		}
		if _, err := s.reports.Generate(ctx, userID, conversationID, core.ReportInitialConsultation); err != nil {
			s.log.Error("auto report generation failed", "conversation_id", conversationID, "error", err)
			return
		}
		s.log.Info("auto report generated", "conversation_id", conversationID)
	}()
}

func (s *Server) chatConversations(c *gin.Context) {
	limit := intQuery(c, "limit", 20)
	offset := intQuery(c, "offset", 0)
	list, err := s.store.ListConversations(c.Request.Context(), mustUser(c).ID, limit, offset)
	if err != nil {
		s.log.Error("list conversations failed", "error", err)
		fail(c, http.StatusInternalServerError, "Could not list conversations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

func (s *Server) chatConversation(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	conv, err := s.store.GetConversation(ctx, mustUser(c).ID, id)
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		s.log.Error("get conversation failed", "conversation_id", id, "error", err)
		fail(c, http.StatusInternalServerError, "Could not load conversation")
		return
	}
	messages, err := s.store.ListMessages(ctx, id)
	if err != nil {
		s.log.Error("list messages failed", "conversation_id", id, "error", err)
		fail(c, http.StatusInternalServerError, "Could not load conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv, "messages": messages})
}

func (s *Server) chatComplete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	err := s.chat.Complete(c.Request.Context(), mustUser(c).ID, id)
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		s.log.Error("complete conversation failed", "conversation_id", id, "error", err)
		fail(c, http.StatusInternalServerError, "Could not complete conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation completed"})
}

func (s *Server) chatFollowup(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	questions, err := s.chat.FollowupQuestions(c.Request.Context(), mustUser(c).ID, id)
	if errors.Is(err, db.ErrNotFound) {
		fail(c, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		s.log.Error("followup generation failed", "conversation_id", id, "error", err)
		fail(c, http.StatusInternalServerError, "Could not generate follow-up questions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"followup_questions": questions})
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, fallback int) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
