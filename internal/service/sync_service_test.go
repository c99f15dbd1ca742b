package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vina-edu/academic-api/internal/models"
	appErrors "github.com/vina-edu/academic-api/pkg/errors"
)

type syncMarkStoreStub struct {
	mark     *models.SyncMark
	earliest *time.Time
}

func (s *syncMarkStoreStub) GetMark(ctx context.Context, termID, classID string) (*models.SyncMark, error) {
	return s.mark, nil
}

func (s *syncMarkStoreStub) UpsertMark(ctx context.Context, termID, classID string, syncedAt time.Time) error {
	s.mark = &models.SyncMark{TermID: termID, ClassID: classID, LastSyncedAt: syncedAt}
	return nil
}

func (s *syncMarkStoreStub) EarliestSubmittedAt(ctx context.Context, termID, classID string) (*time.Time, error) {
	return s.earliest, nil
}

type watermarkStub struct {
	watermarks map[string]time.Time
}

func (s *watermarkStub) SourceWatermarks(ctx context.Context, classID string, termIDs []string) (map[string]time.Time, error) {
	out := map[string]time.Time{}
	for _, id := range termIDs {
		if w, ok := s.watermarks[id]; ok {
			out[id] = w
		}
	}
	return out, nil
}

type broadcastStub struct {
	broadcast *models.ParentBroadcast
}

func (s *broadcastStub) GetBroadcast(ctx context.Context, termID, classID string) (*models.ParentBroadcast, error) {
	return s.broadcast, nil
}

type syncRosterStub struct {
	rosterStub
}

func (s *syncRosterStub) ListClassStudents(ctx context.Context, classID, termID string) ([]models.ClassStudent, error) {
	return []models.ClassStudent{{StudentID: "st-1", StudentName: "An"}}, nil
}

func (s *syncRosterStub) ListClassSubjects(ctx context.Context, classID, termID string) ([]models.Subject, error) {
	return []models.Subject{{ID: "math", Code: "MATH"}}, nil
}

type refresherStub struct {
	refreshed []models.GradeScope
}

func (s *refresherStub) RefreshSummary(ctx context.Context, scope models.GradeScope) (*models.SummaryGrade, error) {
	s.refreshed = append(s.refreshed, scope)
	return &models.SummaryGrade{Scope: scope}, nil
}

func newSyncRosterStub() *syncRosterStub {
	return &syncRosterStub{rosterStub: *newRosterStub()}
}

func TestCheckSyncStatusNeverDistributed(t *testing.T) {
	svc := NewSyncService(&syncMarkStoreStub{}, &watermarkStub{}, &broadcastStub{}, newSyncRosterStub(), &refresherStub{}, nil)

	status, err := svc.CheckSyncStatus(context.Background(), models.SyncScope{TermID: "sem1", ClassID: "cls-1"})
	require.NoError(t, err)
	assert.False(t, status.NeedsResync)
	assert.Nil(t, status.LastSyncTime)
}

func TestCheckSyncStatusDetectsLateWrites(t *testing.T) {
	submitted := time.Now().UTC().Add(-time.Hour)
	lateWrite := submitted.Add(30 * time.Minute)
	marks := &syncMarkStoreStub{earliest: &submitted}
	grades := &watermarkStub{watermarks: map[string]time.Time{"sem1": lateWrite}}
	svc := NewSyncService(marks, grades, &broadcastStub{}, newSyncRosterStub(), &refresherStub{}, nil)

	status, err := svc.CheckSyncStatus(context.Background(), models.SyncScope{TermID: "sem1", ClassID: "cls-1"})
	require.NoError(t, err)
	assert.True(t, status.NeedsResync)
	assert.Equal(t, []string{"sem1"}, status.AffectedPeriods)
	require.NotNil(t, status.LastSourceWrite)
	assert.True(t, status.LastSourceWrite.Equal(lateWrite))
}

func TestCheckSyncStatusFreshWhenNoLaterWrites(t *testing.T) {
	write := time.Now().UTC().Add(-2 * time.Hour)
	submitted := write.Add(time.Hour)
	marks := &syncMarkStoreStub{earliest: &submitted}
	grades := &watermarkStub{watermarks: map[string]time.Time{"sem1": write}}
	svc := NewSyncService(marks, grades, &broadcastStub{}, newSyncRosterStub(), &refresherStub{}, nil)

	status, err := svc.CheckSyncStatus(context.Background(), models.SyncScope{TermID: "sem1", ClassID: "cls-1"})
	require.NoError(t, err)
	assert.False(t, status.NeedsResync)
}

func TestCheckSyncStatusYearlyWatchesAllTerms(t *testing.T) {
	submitted := time.Now().UTC().Add(-time.Hour)
	marks := &syncMarkStoreStub{earliest: &submitted}
	// A semester write after the yearly report went out marks the
	// yearly scope stale even though the yearly term itself is quiet.
	grades := &watermarkStub{watermarks: map[string]time.Time{"sem2": submitted.Add(10 * time.Minute)}}
	svc := NewSyncService(marks, grades, &broadcastStub{}, newSyncRosterStub(), &refresherStub{}, nil)

	status, err := svc.CheckSyncStatus(context.Background(), models.SyncScope{TermID: "yearly", ClassID: "cls-1"})
	require.NoError(t, err)
	assert.True(t, status.NeedsResync)
	assert.Equal(t, []string{"sem2"}, status.AffectedPeriods)
}

func TestForceResyncRecomputesAndClearsStaleness(t *testing.T) {
	submitted := time.Now().UTC().Add(-time.Hour)
	marks := &syncMarkStoreStub{earliest: &submitted}
	grades := &watermarkStub{watermarks: map[string]time.Time{"sem1": submitted.Add(time.Minute)}}
	refresher := &refresherStub{}
	svc := NewSyncService(marks, grades, &broadcastStub{}, newSyncRosterStub(), refresher, nil)
	scope := models.SyncScope{TermID: "sem1", ClassID: "cls-1"}

	before, err := svc.CheckSyncStatus(context.Background(), scope)
	require.NoError(t, err)
	require.True(t, before.NeedsResync)

	after, err := svc.ForceResync(context.Background(), &models.Actor{ID: "adm-1", Role: models.RoleAdmin}, scope)
	require.NoError(t, err)
	assert.False(t, after.NeedsResync)
	require.NotNil(t, marks.mark)
	assert.Len(t, refresher.refreshed, 1)
	assert.Equal(t, "st-1", refresher.refreshed[0].StudentID)
}

func TestForceResyncRequiresDistribution(t *testing.T) {
	svc := NewSyncService(&syncMarkStoreStub{}, &watermarkStub{}, &broadcastStub{}, newSyncRosterStub(), &refresherStub{}, nil)

	_, err := svc.ForceResync(context.Background(), &models.Actor{ID: "adm-1", Role: models.RoleAdmin}, models.SyncScope{TermID: "sem1", ClassID: "cls-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestForceResyncForbiddenForParents(t *testing.T) {
	svc := NewSyncService(&syncMarkStoreStub{}, &watermarkStub{}, &broadcastStub{}, newSyncRosterStub(), &refresherStub{}, nil)

	_, err := svc.ForceResync(context.Background(), &models.Actor{ID: "p-1", Role: models.RoleParent}, models.SyncScope{TermID: "sem1", ClassID: "cls-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
