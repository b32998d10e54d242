package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/msk-triage-server/internal/domain"
	"github.com/msk-triage-server/internal/interview"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The triage UI is served from another origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 10 * time.Second
	wsAnswerWait = 10 * time.Minute
)

// chatFrame is the single message shape on the chat socket.
type chatFrame struct {
	Type     string                   `json:"type"` // "question", "answer", "result", "error"
	Text     string                   `json:"text,omitempty"`
	State    interview.State          `json:"state,omitempty"`
	Result   *domain.EvaluationResult `json:"result,omitempty"`
	Report   *domain.TriageReport     `json:"report,omitempty"`
	Complete bool                     `json:"complete,omitempty"`
}

// handleChatSocket drives one full interview over a websocket. The
// questionnaire type comes from the query string and defaults to knee
// injury.
func (s *Server) handleChatSocket(c *gin.Context) {
	questionnaireType := c.DefaultQuery("questionnaire_type", "knee_injury")
	spec, err := s.registry.Get(questionnaireType)
	if err != nil {
		s.writeError(c, http.StatusNotFound, domain.ErrSpecNotFound, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	sess := interview.NewSession(questionnaireType)
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.log.WithError(err).Error("Failed to persist chat session")
		return
	}

	for !sess.Complete() {
		question := s.triage.NextQuestion(ctx, sess)
		if err := s.writeFrame(conn, chatFrame{Type: "question", Text: question, State: sess.State}); err != nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(wsAnswerWait))
		var answer chatFrame
		if err := conn.ReadJSON(&answer); err != nil {
			s.log.WithError(err).WithField("session_id", sess.ID).Info("Chat socket closed mid-interview")
			return
		}
		if answer.Text == "" {
			s.writeFrame(conn, chatFrame{Type: "error", Text: "empty answer"})
			continue
		}

		sess = sess.Advance(spec, answer.Text)
		if err := s.sessions.Save(ctx, sess); err != nil {
			s.log.WithError(err).Error("Failed to persist chat session")
			return
		}
	}

	result := s.engine.Evaluate(spec, sess.Record)
	sess = sess.WithResult(result)
	report := s.buildReport(c, sess)
	s.issueReport(c, report)
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.log.WithError(err).Error("Failed to persist chat session")
	}

	s.writeFrame(conn, chatFrame{
		Type:     "result",
		Text:     report.Summary,
		Result:   result,
		Report:   report,
		Complete: true,
	})
}

func (s *Server) writeFrame(conn *websocket.Conn, frame chatFrame) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(frame); err != nil {
		s.log.WithError(err).Info("Chat socket write failed")
		return err
	}
	return nil
}
