// Package repository persists issued triage reports in PostgreSQL.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/msk-triage-server/internal/domain"
)

// ErrReportNotFound is returned when no report matches the lookup.
var ErrReportNotFound = errors.New("report not found")

// ReportRepository handles triage report persistence
type ReportRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *pgxpool.Pool, logger *logrus.Logger) *ReportRepository {
	return &ReportRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a new issued report. A missing ID or timestamp is filled in.
func (r *ReportRepository) Create(ctx context.Context, report *domain.TriageReport) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(report.Result)
	if err != nil {
		return fmt.Errorf("marshaling evaluation result: %w", err)
	}

	query := `
		INSERT INTO reports (
			id, session_id, questionnaire_type, pathway, result,
			summary, referral_letter, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)`

	_, err = r.db.Exec(ctx, query,
		report.ID,
		report.SessionID,
		report.QuestionnaireType,
		report.Pathway,
		resultJSON,
		report.Summary,
		report.ReferralLetter,
		report.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"report_id":  report.ID,
			"session_id": report.SessionID,
			"error":      err,
		}).Error("Failed to create report")
		return fmt.Errorf("creating report: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"report_id":  report.ID,
		"session_id": report.SessionID,
		"pathway":    report.Pathway,
	}).Info("Triage report archived")
	return nil
}

// GetByID returns a report by its ID, or ErrReportNotFound.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.TriageReport, error) {
	query := `
		SELECT id, session_id, questionnaire_type, pathway, result,
		       summary, referral_letter, created_at
		FROM reports
		WHERE id = $1`

	return r.scanReport(r.db.QueryRow(ctx, query, id))
}

// GetBySessionID returns the latest report issued for a session, or
// ErrReportNotFound.
func (r *ReportRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.TriageReport, error) {
	query := `
		SELECT id, session_id, questionnaire_type, pathway, result,
		       summary, referral_letter, created_at
		FROM reports
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	return r.scanReport(r.db.QueryRow(ctx, query, sessionID))
}

// ListRecent returns the newest reports, bounded by limit.
func (r *ReportRepository) ListRecent(ctx context.Context, limit int) ([]*domain.TriageReport, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, session_id, questionnaire_type, pathway, result,
		       summary, referral_letter, created_at
		FROM reports
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.TriageReport
	for rows.Next() {
		report, err := r.scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// PathwayCounts returns how many reports went to each pathway, for
// service-level monitoring.
func (r *ReportRepository) PathwayCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		"SELECT pathway, COUNT(*) FROM reports GROUP BY pathway")
	if err != nil {
		return nil, fmt.Errorf("counting pathways: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var pathway string
		var n int
		if err := rows.Scan(&pathway, &n); err != nil {
			return nil, fmt.Errorf("scanning pathway count: %w", err)
		}
		counts[pathway] = n
	}
	return counts, rows.Err()
}

func (r *ReportRepository) scanReport(row pgx.Row) (*domain.TriageReport, error) {
	report := &domain.TriageReport{}
	var resultJSON []byte

	err := row.Scan(
		&report.ID,
		&report.SessionID,
		&report.QuestionnaireType,
		&report.Pathway,
		&resultJSON,
		&report.Summary,
		&report.ReferralLetter,
		&report.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning report: %w", err)
	}

	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &report.Result); err != nil {
			return nil, fmt.Errorf("unmarshaling evaluation result: %w", err)
		}
	}
	return report, nil
}
