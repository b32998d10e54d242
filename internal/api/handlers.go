package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/msk-triage-server/internal/agent"
	"github.com/msk-triage-server/internal/domain"
	"github.com/msk-triage-server/internal/interview"
	"github.com/msk-triage-server/internal/repository"
	"github.com/msk-triage-server/internal/session"
)

type evaluateRequest struct {
	QuestionnaireType string               `json:"questionnaire_type" binding:"required"`
	Record            domain.PatientRecord `json:"record" binding:"required"`
}

type createSessionRequest struct {
	QuestionnaireType string `json:"questionnaire_type" binding:"required"`
}

type postMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

type sessionResponse struct {
	SessionID string                   `json:"session_id"`
	State     interview.State          `json:"state"`
	Question  string                   `json:"question,omitempty"`
	Complete  bool                     `json:"complete"`
	Result    *domain.EvaluationResult `json:"result,omitempty"`
}

func (s *Server) handleListQuestionnaires(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"questionnaires": s.registry.Available()})
}

// handleEvaluate runs the rule engine directly on a caller-supplied
// record, without an interview.
func (s *Server) handleEvaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, domain.ErrInvalidInput, err.Error())
		return
	}

	spec, err := s.registry.Get(req.QuestionnaireType)
	if err != nil {
		var notFound *domain.SpecNotFoundError
		if errors.As(err, &notFound) {
			s.writeError(c, http.StatusNotFound, domain.ErrSpecNotFound, err.Error())
			return
		}
		s.writeError(c, http.StatusInternalServerError, domain.ErrInternalServer, err.Error())
		return
	}

	result := s.engine.Evaluate(spec, req.Record)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, domain.ErrInvalidInput, err.Error())
		return
	}
	if _, err := s.registry.Get(req.QuestionnaireType); err != nil {
		s.writeError(c, http.StatusNotFound, domain.ErrSpecNotFound, err.Error())
		return
	}

	sess := interview.NewSession(req.QuestionnaireType)
	if err := s.sessions.Save(c.Request.Context(), sess); err != nil {
		s.writeError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}

	c.JSON(http.StatusCreated, sessionResponse{
		SessionID: sess.ID,
		State:     sess.State,
		Question:  s.triage.NextQuestion(c.Request.Context(), sess),
		Complete:  false,
	})
}

func (s *Server) handleListSessions(c *gin.Context) {
	ids, err := s.sessions.List(c.Request.Context(), 50)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_ids": ids})
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(c, http.StatusNotFound, domain.ErrInvalidInput, "session not found")
			return
		}
		s.writeError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}
	c.JSON(http.StatusOK, sess)
}

// handlePostMessage advances the interview by one answer. The answer that
// completes the interview also triggers evaluation and report issuing.
func (s *Server) handlePostMessage(c *gin.Context) {
	var req postMessageRequest
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
	if sess.Complete() {
		s.writeError(c, http.StatusConflict, domain.ErrInvalidInput, "interview already complete")
		return
	}

	spec, err := s.registry.Get(sess.QuestionnaireType)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, domain.ErrSpecNotFound, err.Error())
		return
	}

	sess = sess.Advance(spec, req.Message)

	resp := sessionResponse{
		SessionID: sess.ID,
		State:     sess.State,
		Complete:  sess.Complete(),
	}
	if sess.Complete() {
		result := s.engine.Evaluate(spec, sess.Record)
		sess = sess.WithResult(result)
		resp.Result = result
		if s.reports != nil {
			s.issueReport(c, s.buildReport(c, sess))
		}
	} else {
		resp.Question = s.triage.NextQuestion(c.Request.Context(), sess)
	}

	if err := s.sessions.Save(c.Request.Context(), sess); err != nil {
		s.writeError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetReport(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if s.reports != nil {
		report, err := s.reports.GetBySessionID(ctx, id)
		if err == nil {
			c.JSON(http.StatusOK, report)
			return
		}
		if !errors.Is(err, repository.ErrReportNotFound) {
			s.writeError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
			return
		}
	}

	sess, err := s.sessions.Get(ctx, id)
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

	c.JSON(http.StatusOK, s.buildReport(c, sess))
}

// handleListReports returns recently archived reports. The archive only
// exists in PostgreSQL deployments.
func (s *Server) handleListReports(c *gin.Context) {
	if s.reports == nil {
		s.writeError(c, http.StatusNotImplemented, domain.ErrInvalidInput, "report archive is not enabled")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	reports, err := s.reports.ListRecent(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

func (s *Server) handleGetReportByID(c *gin.Context) {
	if s.reports == nil {
		s.writeError(c, http.StatusNotImplemented, domain.ErrInvalidInput, "report archive is not enabled")
		return
	}

	report, err := s.reports.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			s.writeError(c, http.StatusNotFound, domain.ErrInvalidInput, "report not found")
			return
		}
		s.writeError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleReportStats summarizes archived reports by recommended pathway.
func (s *Server) handleReportStats(c *gin.Context) {
	if s.reports == nil {
		s.writeError(c, http.StatusNotImplemented, domain.ErrInvalidInput, "report archive is not enabled")
		return
	}

	counts, err := s.reports.PathwayCounts(c.Request.Context())
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, domain.ErrDatabaseError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"pathways": counts})
}

// buildReport narrates a completed session into a report.
func (s *Server) buildReport(c *gin.Context, sess interview.Session) *domain.TriageReport {
	ctx := c.Request.Context()
	summary := s.summary.Summarize(ctx, sess)
	letter := s.referral.Letter(ctx, sess, summary)
	return &domain.TriageReport{
		SessionID:         sess.ID,
		QuestionnaireType: sess.QuestionnaireType,
		Pathway:           string(agent.PathwayFor(sess.Result)),
		Result:            sess.Result,
		Summary:           summary,
		ReferralLetter:    letter,
	}
}

// issueReport archives the report when an archive is configured. Archive
// failures are logged, not surfaced; the patient-facing response already
// carries the result.
func (s *Server) issueReport(c *gin.Context, report *domain.TriageReport) {
	if s.reports == nil {
		return
	}
	if err := s.reports.Create(c.Request.Context(), report); err != nil {
		s.log.WithError(err).WithField("session_id", report.SessionID).Error("Failed to archive triage report")
	}
}

func (s *Server) writeError(c *gin.Context, status int, code, details string) {
	s.log.WithFields(logrus.Fields{
		"status":         status,
		"code":           code,
		"correlation_id": c.GetString("correlation_id"),
	}).Warn(details)
	c.JSON(status, gin.H{
		"error":          code,
		"details":        details,
		"correlation_id": c.GetString("correlation_id"),
	})
}
