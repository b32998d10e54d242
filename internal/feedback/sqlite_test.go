package feedback

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "feedback-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")

	// Act
	store, err := NewSQLiteStore(dbPath)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	// Verify database file was created
	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_Save(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	feedback := &Feedback{
		SessionID:         "sess-001",
		QuestionnaireType: "knee_injury",
		SuggestedPathway:  "MSK Physiotherapy",
		ReviewedPathway:   "Orthopaedic Surgery",
		ReviewerAgreed:    false,
		TopDiagnosis:      "acl_tear",
		Notes:             "High-grade instability on examination",
	}

	// Act
	err := store.Save(ctx, feedback)

	// Assert
	require.NoError(t, err)
	assert.NotZero(t, feedback.ID, "ID should be assigned")
	assert.False(t, feedback.CreatedAt.IsZero(), "CreatedAt should be set")
	assert.False(t, feedback.UpdatedAt.IsZero(), "UpdatedAt should be set")
}

func TestSQLiteStore_Save_Update(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// Save initial review
	feedback := &Feedback{
		SessionID:         "sess-002",
		QuestionnaireType: "knee_oa",
		SuggestedPathway:  "MSK Physiotherapy",
		ReviewedPathway:   "MSK Physiotherapy",
		ReviewerAgreed:    true,
	}
	err := store.Save(ctx, feedback)
	require.NoError(t, err)
	originalID := feedback.ID

	// A second review of the same session replaces the first
	feedback.ReviewedPathway = "Orthopaedic Surgery"
	feedback.ReviewerAgreed = false
	feedback.Notes = "Updated after imaging"

	err = store.Save(ctx, feedback)
	require.NoError(t, err)

	// Assert - should update, not create new
	assert.Equal(t, originalID, feedback.ID, "Should update existing record")

	// Verify update
	retrieved, err := store.Get(ctx, "sess-002")
	require.NoError(t, err)
	assert.Equal(t, "Orthopaedic Surgery", retrieved.ReviewedPathway)
	assert.Equal(t, "Updated after imaging", retrieved.Notes)
	assert.False(t, retrieved.ReviewerAgreed)
}

func TestSQLiteStore_Get(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	feedback := &Feedback{
		SessionID:         "sess-003",
		QuestionnaireType: "knee_injury",
		SuggestedPathway:  "Urgent Care / A&E",
		ReviewedPathway:   "Urgent Care / A&E",
		ReviewerAgreed:    true,
		TopDiagnosis:      "septic_arthritis",
	}
	err := store.Save(ctx, feedback)
	require.NoError(t, err)

	// Act
	retrieved, err := store.Get(ctx, "sess-003")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, feedback.SessionID, retrieved.SessionID)
	assert.Equal(t, feedback.SuggestedPathway, retrieved.SuggestedPathway)
	assert.True(t, retrieved.ReviewerAgreed)
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// Act
	retrieved, err := store.Get(ctx, "no-such-session")

	// Assert
	assert.NoError(t, err)
	assert.Nil(t, retrieved, "Should return nil for not found")
}

func TestSQLiteStore_List(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		feedback := &Feedback{
			SessionID:         fmt.Sprintf("sess-%03d", i),
			QuestionnaireType: "knee_injury",
			SuggestedPathway:  "GP / Primary Care",
			ReviewedPathway:   "GP / Primary Care",
			ReviewerAgreed:    true,
		}
		err := store.Save(ctx, feedback)
		require.NoError(t, err, "Failed to save feedback %d", i)
	}

	// Act
	list, err := store.List(ctx, 10, 0)

	// Assert
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestSQLiteStore_List_Pagination(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// Save 5 entries
	for i := 0; i < 5; i++ {
		feedback := &Feedback{
			SessionID:         fmt.Sprintf("sess-%03d", i),
			QuestionnaireType: "knee_oa",
			SuggestedPathway:  "MSK Physiotherapy",
			ReviewedPathway:   "MSK Physiotherapy",
			ReviewerAgreed:    true,
		}
		err := store.Save(ctx, feedback)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond) // Ensure different timestamps
	}

	// Act - get first page
	page1, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	// Act - get second page
	page2, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 2)

	// Act - get third page
	page3, err := store.List(ctx, 2, 4)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
}

func TestSQLiteStore_Count(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		feedback := &Feedback{
			SessionID:         fmt.Sprintf("sess-%03d", i),
			QuestionnaireType: "knee_injury",
			SuggestedPathway:  "MSK Physiotherapy",
			ReviewedPathway:   "MSK Physiotherapy",
			ReviewerAgreed:    true,
		}
		err := store.Save(ctx, feedback)
		require.NoError(t, err)
	}

	// Act
	count, err := store.Count(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	feedback := &Feedback{
		SessionID:         "sess-004",
		QuestionnaireType: "knee_injury",
		SuggestedPathway:  "MSK Physiotherapy",
		ReviewedPathway:   "MSK Physiotherapy",
		ReviewerAgreed:    true,
	}
	err := store.Save(ctx, feedback)
	require.NoError(t, err)

	// Act
	err = store.Delete(ctx, feedback.ID)

	// Assert
	require.NoError(t, err)

	// Verify deletion
	retrieved, err := store.Get(ctx, "sess-004")
	assert.NoError(t, err)
	assert.Nil(t, retrieved)
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	feedback := &Feedback{
		SessionID:         "sess-005",
		QuestionnaireType: "knee_oa",
		SuggestedPathway:  "MSK Physiotherapy",
		ReviewedPathway:   "MSK Physiotherapy",
		ReviewerAgreed:    true,
		Notes:             "Classic degenerative picture",
	}
	err := store.Save(ctx, feedback)
	require.NoError(t, err)

	// Act
	var buf bytes.Buffer
	err = store.ExportJSON(ctx, &buf)

	// Assert
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "sess-005")
	assert.Contains(t, buf.String(), "Classic degenerative picture")
	assert.Contains(t, buf.String(), `"version"`)
	assert.Contains(t, buf.String(), `"count"`)
}

func TestSQLiteStore_ImportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	jsonData := `{
		"version": "1.0",
		"exported_at": "2026-01-17T10:00:00Z",
		"count": 2,
		"feedback": [
			{
				"session_id": "sess-100",
				"questionnaire_type": "knee_injury",
				"suggested_pathway": "MSK Physiotherapy",
				"reviewed_pathway": "MSK Physiotherapy",
				"reviewer_agreed": true
			},
			{
				"session_id": "sess-101",
				"questionnaire_type": "knee_oa",
				"suggested_pathway": "MSK Physiotherapy",
				"reviewed_pathway": "Orthopaedic Surgery",
				"reviewer_agreed": false,
				"notes": "Joint space loss on weight-bearing films"
			}
		]
	}`

	// Act
	imported, skipped, err := store.ImportJSON(ctx, bytes.NewReader([]byte(jsonData)))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 0, skipped)

	// Verify imports
	count, _ := store.Count(ctx)
	assert.Equal(t, int64(2), count)

	agreed, err := store.Get(ctx, "sess-100")
	require.NoError(t, err)
	assert.True(t, agreed.ReviewerAgreed)

	escalated, err := store.Get(ctx, "sess-101")
	require.NoError(t, err)
	assert.Equal(t, "Orthopaedic Surgery", escalated.ReviewedPathway)
	assert.Equal(t, "Joint space loss on weight-bearing films", escalated.Notes)
}

func TestSQLiteStore_ImportJSON_SkipDuplicates(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// Save existing review
	existing := &Feedback{
		SessionID:         "sess-200",
		QuestionnaireType: "knee_injury",
		SuggestedPathway:  "MSK Physiotherapy",
		ReviewedPathway:   "MSK Physiotherapy",
		ReviewerAgreed:    true,
	}
	err := store.Save(ctx, existing)
	require.NoError(t, err)

	// Import with duplicate
	jsonData := `{
		"version": "1.0",
		"count": 2,
		"feedback": [
			{
				"session_id": "sess-200",
				"questionnaire_type": "knee_injury",
				"suggested_pathway": "MSK Physiotherapy",
				"reviewed_pathway": "GP / Primary Care",
				"reviewer_agreed": false
			},
			{
				"session_id": "sess-201",
				"questionnaire_type": "knee_oa",
				"suggested_pathway": "MSK Physiotherapy",
				"reviewed_pathway": "MSK Physiotherapy",
				"reviewer_agreed": true
			}
		]
	}`

	// Act
	imported, skipped, err := store.ImportJSON(ctx, bytes.NewReader([]byte(jsonData)))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	// Verify existing wasn't overwritten
	kept, _ := store.Get(ctx, "sess-200")
	assert.Equal(t, "MSK Physiotherapy", kept.ReviewedPathway, "Existing should not be overwritten")
}

// Helper function to create a test store
func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "feedback-test-*")
	require.NoError(t, err)

	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	return store
}
