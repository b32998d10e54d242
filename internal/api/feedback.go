package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/msk-triage-server/internal/agent"
	"github.com/msk-triage-server/internal/domain"
	"github.com/msk-triage-server/internal/feedback"
	"github.com/msk-triage-server/internal/session"
)

type feedbackRequest struct {
	ReviewedPathway string `json:"reviewed_pathway" binding:"required"`
	Notes           string `json:"notes"`
}

// handlePostFeedback records a clinician's review of a completed triage
// session. Agreement is derived by comparing the reviewed pathway with
// the one the system recommended.
func (s *Server) handlePostFeedback(c *gin.Context) {
	if s.feedback == nil {
		s.writeError(c, http.StatusNotImplemented, domain.ErrInvalidInput, "clinician review is not enabled")
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, domain.ErrInvalidInput, err.Error())
		return
	}

	sess, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(c, http.StatusNotFound, domain.ErrInvalidInput, "session not found")
			return
		}
		s.writeError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}
	if sess.Result == nil {
		s.writeError(c, http.StatusConflict, domain.ErrInvalidInput, "interview not yet complete")
		return
	}

	suggested := string(agent.PathwayFor(sess.Result))
	fb := &feedback.Feedback{
		SessionID:         sess.ID,
		QuestionnaireType: sess.QuestionnaireType,
		SuggestedPathway:  suggested,
		ReviewedPathway:   req.ReviewedPathway,
		ReviewerAgreed:    req.ReviewedPathway == suggested,
		Notes:             req.Notes,
	}
	if len(sess.Result.Top) > 0 {
		fb.TopDiagnosis = sess.Result.Top[0].DiagnosisCode
	}

	if err := s.feedback.Save(c.Request.Context(), fb); err != nil {
		s.writeError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}

	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	if s.feedback == nil {
		s.writeError(c, http.StatusNotImplemented, domain.ErrInvalidInput, "clinician review is not enabled")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	entries, err := s.feedback.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}
	total, err := s.feedback.Count(c.Request.Context())
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feedback": entries,
		"count":    len(entries),
		"total":    total,
	})
}
