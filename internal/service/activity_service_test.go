package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pawtograder/platform-sub009/internal/dto"
	"github.com/pawtograder/platform-sub009/internal/models"
	"github.com/pawtograder/platform-sub009/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	results := make([]models.ActivityLog, 0, len(m.entries))
	for _, entry := range m.entries {
		if filter.ClassID != 0 && (entry.ClassID == nil || *entry.ClassID != filter.ClassID) {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		results = append(results, entry)
	}
	return results, int64(len(results)), nil
}

func TestActivityServiceRecordMasksEmailButKeepsTokens(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ClassID:    ptrUint(3),
		ActorID:    1,
		ActorRole:  "Instructor",
		Action:     "Due_Date_Exception.Created",
		EntityType: "due_date_exception",
		EntityID:   ptrUint(5),
		Metadata: map[string]interface{}{
			"student_email":   "student@example.com",
			"tokens_consumed": 2,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["student_email"])
	require.Equal(t, 2, entry.Metadata["tokens_consumed"])
	require.Equal(t, "instructor", entry.ActorRole)
	require.Equal(t, "due_date_exception.created", entry.Action)
}

func TestActivityServiceRecordRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "due_date_exception"})
	require.Error(t, err)
}

func TestActivityServiceListFiltersByClass(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	for _, classID := range []uint{1, 1, 2} {
		_, err := svc.Record(context.Background(), ActivityEntry{ClassID: ptrUint(classID), Action: "due_date_exception.created", EntityType: "due_date_exception"})
		require.NoError(t, err)
	}

	resp, err := svc.List(context.Background(), dto.ActivityListRequest{ClassID: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	require.Equal(t, 1, resp.Pagination.TotalPages)
	require.Equal(t, "system", resp.Items[0].ActorRole)
}
