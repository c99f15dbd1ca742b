package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vina-edu/academic-api/internal/models"
	appErrors "github.com/vina-edu/academic-api/pkg/errors"
)

func f(v float64) *float64 { return &v }

func component(t models.ComponentType, v *float64) models.GradeComponent {
	return models.GradeComponent{ComponentType: t, Value: v}
}

type componentStoreStub struct {
	components map[string][]models.GradeComponent
	cells      map[string]*models.GradeComponent
	audits     []models.GradeAuditEntry
	summaries  []models.GradeComponent
}

func newComponentStoreStub() *componentStoreStub {
	return &componentStoreStub{
		components: map[string][]models.GradeComponent{},
		cells:      map[string]*models.GradeComponent{},
	}
}

func scopeKey(scope models.GradeScope) string {
	return scope.TermID + "/" + scope.StudentID + "/" + scope.SubjectID + "/" + scope.ClassID
}

func (s *componentStoreStub) GetComponents(ctx context.Context, scope models.GradeScope) ([]models.GradeComponent, error) {
	return s.components[scopeKey(scope)], nil
}

func (s *componentStoreStub) GetComponentsForTerms(ctx context.Context, termIDs []string, studentID, subjectID, classID string) ([]models.GradeComponent, error) {
	var all []models.GradeComponent
	for _, termID := range termIDs {
		scope := models.GradeScope{TermID: termID, StudentID: studentID, SubjectID: subjectID, ClassID: classID}
		all = append(all, s.components[scopeKey(scope)]...)
	}
	return all, nil
}

func (s *componentStoreStub) Find(ctx context.Context, scope models.GradeScope, componentType models.ComponentType) (*models.GradeComponent, error) {
	cell, ok := s.cells[scopeKey(scope)+"/"+string(componentType)]
	if !ok {
		return nil, nil
	}
	copied := *cell
	return &copied, nil
}

func (s *componentStoreStub) UpsertWithAudit(ctx context.Context, component *models.GradeComponent, entry *models.GradeAuditEntry) error {
	if component.ID == "" {
		component.ID = uuid.NewString()
	}
	scope := models.GradeScope{TermID: component.TermID, StudentID: component.StudentID, SubjectID: component.SubjectID, ClassID: component.ClassID}
	copied := *component
	s.cells[scopeKey(scope)+"/"+string(component.ComponentType)] = &copied
	entry.GradeID = component.ID
	entry.ChangedAt = time.Now().UTC()
	s.audits = append(s.audits, *entry)
	return nil
}

func (s *componentStoreStub) UpsertSummary(ctx context.Context, component *models.GradeComponent) error {
	s.summaries = append(s.summaries, *component)
	return nil
}

type auditReaderStub struct {
	latest map[string]*models.GradeAuditEntry
}

func (s *auditReaderStub) LatestForGrade(ctx context.Context, gradeID string) (*models.GradeAuditEntry, error) {
	if s.latest == nil {
		return nil, nil
	}
	return s.latest[gradeID], nil
}

type rosterStub struct {
	terms    map[string]*models.Term
	students map[string]*models.Student
	subjects map[string]*models.Subject
	byClass  []models.Subject
}

func newRosterStub() *rosterStub {
	return &rosterStub{
		terms: map[string]*models.Term{
			"sem1":   {ID: "sem1", Type: models.TermTypeSemester1, AcademicYear: "2025-2026"},
			"sem2":   {ID: "sem2", Type: models.TermTypeSemester2, AcademicYear: "2025-2026"},
			"yearly": {ID: "yearly", Type: models.TermTypeYearly, AcademicYear: "2025-2026"},
		},
		students: map[string]*models.Student{"st-1": {ID: "st-1", FullName: "Nguyen Van A"}},
		subjects: map[string]*models.Subject{"math": {ID: "math", Code: "MATH", Name: "Mathematics"}},
	}
}

func (s *rosterStub) GetTerm(ctx context.Context, id string) (*models.Term, error) {
	return s.terms[id], nil
}

func (s *rosterStub) ListTermsForYear(ctx context.Context, academicYear string) ([]models.Term, error) {
	var terms []models.Term
	for _, t := range s.terms {
		if t.AcademicYear == academicYear {
			terms = append(terms, *t)
		}
	}
	return terms, nil
}

func (s *rosterStub) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	return s.students[id], nil
}

func (s *rosterStub) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	return s.subjects[id], nil
}

func (s *rosterStub) ListClassSubjects(ctx context.Context, classID, termID string) ([]models.Subject, error) {
	return s.byClass, nil
}

type cacheStub struct {
	values  map[string]float64
	deletes int
}

func newCacheStub() *cacheStub { return &cacheStub{values: map[string]float64{}} }

func (c *cacheStub) GetSummary(ctx context.Context, scope models.GradeScope) (*float64, bool) {
	v, ok := c.values[scopeKey(scope)]
	if !ok {
		return nil, false
	}
	return &v, true
}

func (c *cacheStub) SetSummary(ctx context.Context, scope models.GradeScope, value float64) {
	c.values[scopeKey(scope)] = value
}

func (c *cacheStub) DeleteSummary(ctx context.Context, scope models.GradeScope) {
	delete(c.values, scopeKey(scope))
	c.deletes++
}

func TestSummarizeComponentsWeightedFormula(t *testing.T) {
	components := []models.GradeComponent{
		component(models.ComponentRegular1, f(9)),
		component(models.ComponentRegular2, f(8)),
		component(models.ComponentMidterm, f(7)),
		component(models.ComponentFinal, f(6)),
	}
	// (9 + 8 + 2*7 + 3*6) / (2 + 5) = 49 / 7
	value, explicit := SummarizeComponents(components, models.ComponentSemester1)
	require.NotNil(t, value)
	assert.False(t, explicit)
	assert.InDelta(t, 7.0, *value, 1e-9)
}

func TestSummarizeComponentsExplicitEntryWins(t *testing.T) {
	components := []models.GradeComponent{
		component(models.ComponentRegular1, f(2)),
		component(models.ComponentFinal, f(2)),
		component(models.ComponentSemester1, f(8.5)),
	}
	value, explicit := SummarizeComponents(components, models.ComponentSemester1)
	require.NotNil(t, value)
	assert.True(t, explicit)
	assert.Equal(t, 8.5, *value)
}

func TestSummarizeComponentsNoDataIsNil(t *testing.T) {
	value, _ := SummarizeComponents(nil, models.ComponentSemester1)
	assert.Nil(t, value)

	// A nil-valued slot is absent data, not a zero score.
	value, _ = SummarizeComponents([]models.GradeComponent{
		component(models.ComponentMidterm, nil),
	}, models.ComponentSemester1)
	assert.Nil(t, value)
}

func TestSummarizeComponentsZeroScoreIsNotAbsent(t *testing.T) {
	value, _ := SummarizeComponents([]models.GradeComponent{
		component(models.ComponentRegular1, f(0)),
	}, models.ComponentSemester1)
	require.NotNil(t, value)
	assert.Equal(t, 0.0, *value)
}

func TestComputeSummaryMaterializesDerivedValue(t *testing.T) {
	store := newComponentStoreStub()
	scope := models.GradeScope{TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1"}
	store.components[scopeKey(scope)] = []models.GradeComponent{
		component(models.ComponentRegular1, f(9)),
		component(models.ComponentRegular2, f(8)),
		component(models.ComponentMidterm, f(7)),
		component(models.ComponentFinal, f(6)),
	}
	cache := newCacheStub()
	svc := NewGradeService(store, &auditReaderStub{}, newRosterStub(), cache, nil, nil)

	summary, err := svc.ComputeSummary(context.Background(), scope)
	require.NoError(t, err)
	require.NotNil(t, summary.Value)
	assert.InDelta(t, 7.0, *summary.Value, 1e-9)
	assert.Equal(t, 7.0, *summary.Display)
	assert.False(t, summary.Explicit)

	require.Len(t, store.summaries, 1)
	assert.Equal(t, models.ComponentSemester1, store.summaries[0].ComponentType)
	_, cached := cache.GetSummary(context.Background(), scope)
	assert.True(t, cached)
}

func TestComputeSummaryYearlyGathersAcrossTerms(t *testing.T) {
	store := newComponentStoreStub()
	sem1 := models.GradeScope{TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1"}
	sem2 := models.GradeScope{TermID: "sem2", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1"}
	store.components[scopeKey(sem1)] = []models.GradeComponent{component(models.ComponentSemester1, f(7))}
	store.components[scopeKey(sem2)] = []models.GradeComponent{
		component(models.ComponentRegular1, f(9)),
		component(models.ComponentRegular2, f(8)),
		component(models.ComponentMidterm, f(7)),
		component(models.ComponentFinal, f(6)),
	}
	svc := NewGradeService(store, &auditReaderStub{}, newRosterStub(), nil, nil, nil)

	scope := models.GradeScope{TermID: "yearly", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1"}
	summary, err := svc.ComputeSummary(context.Background(), scope)
	require.NoError(t, err)
	require.NotNil(t, summary.Value)
	// No explicit YEARLY entry, so the formula runs over every component
	// of the year's terms.
	assert.False(t, summary.Explicit)
}

func TestComputeSummaryExplicitEntryNotCached(t *testing.T) {
	store := newComponentStoreStub()
	cache := newCacheStub()
	scope := models.GradeScope{TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1"}
	store.components[scopeKey(scope)] = []models.GradeComponent{
		component(models.ComponentRegular1, f(4)),
		component(models.ComponentSemester1, f(8.5)),
	}
	svc := NewGradeService(store, &auditReaderStub{}, newRosterStub(), cache, nil, nil)

	summary, err := svc.ComputeSummary(context.Background(), scope)
	require.NoError(t, err)
	assert.True(t, summary.Explicit)
	require.NotNil(t, summary.Value)
	assert.Equal(t, 8.5, *summary.Value)

	// Explicit entries bypass materialization and caching entirely, so a
	// cache hit can only ever serve a derived value.
	assert.Empty(t, cache.values)
	assert.Empty(t, store.summaries)
}

func TestComputeSummaryPrefersCachedValue(t *testing.T) {
	store := newComponentStoreStub()
	cache := newCacheStub()
	scope := models.GradeScope{TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1"}
	cache.SetSummary(context.Background(), scope, 6.4)
	svc := NewGradeService(store, &auditReaderStub{}, newRosterStub(), cache, nil, nil)

	summary, err := svc.ComputeSummary(context.Background(), scope)
	require.NoError(t, err)
	require.NotNil(t, summary.Value)
	assert.Equal(t, 6.4, *summary.Value)
	assert.Empty(t, store.summaries)
}

func TestRecordGradeChangeRejectsOutOfRangeValue(t *testing.T) {
	svc := NewGradeService(newComponentStoreStub(), &auditReaderStub{}, newRosterStub(), nil, nil, nil)
	actor := &models.Actor{ID: "t-1", Role: models.RoleTeacher}

	for _, bad := range []float64{-0.5, 10.5} {
		_, _, err := svc.RecordGradeChange(context.Background(), actor, RecordGradeRequest{
			TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1",
			ComponentType: models.ComponentRegular1, Value: f(bad),
		})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestRecordGradeChangeFirstWriteSelfApproves(t *testing.T) {
	store := newComponentStoreStub()
	svc := NewGradeService(store, &auditReaderStub{}, newRosterStub(), nil, nil, nil)
	actor := &models.Actor{ID: "t-1", Role: models.RoleTeacher}

	comp, entry, err := svc.RecordGradeChange(context.Background(), actor, RecordGradeRequest{
		TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1",
		ComponentType: models.ComponentRegular1, Value: f(8),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusApproved, entry.Status)
	assert.Nil(t, entry.OldValue)
	assert.Equal(t, 8.0, entry.NewValue)
	assert.Equal(t, comp.ID, entry.GradeID)
	assert.Equal(t, "Nguyen Van A", entry.StudentName)
	assert.Equal(t, "Mathematics", entry.SubjectName)
}

func TestRecordGradeChangeSameAuthorCorrectionSelfApproves(t *testing.T) {
	store := newComponentStoreStub()
	audits := &auditReaderStub{latest: map[string]*models.GradeAuditEntry{}}
	svc := NewGradeService(store, audits, newRosterStub(), nil, nil, nil)
	actor := &models.Actor{ID: "t-1", Role: models.RoleTeacher}

	comp, _, err := svc.RecordGradeChange(context.Background(), actor, RecordGradeRequest{
		TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1",
		ComponentType: models.ComponentRegular1, Value: f(8),
	})
	require.NoError(t, err)
	audits.latest[comp.ID] = &models.GradeAuditEntry{GradeID: comp.ID, ChangedBy: "t-1"}

	_, entry, err := svc.RecordGradeChange(context.Background(), actor, RecordGradeRequest{
		TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1",
		ComponentType: models.ComponentRegular1, Value: f(9), Reason: "typo",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusApproved, entry.Status)
	require.NotNil(t, entry.OldValue)
	assert.Equal(t, 8.0, *entry.OldValue)
}

func TestRecordGradeChangeCrossAuthorCorrectionPendsReview(t *testing.T) {
	store := newComponentStoreStub()
	audits := &auditReaderStub{latest: map[string]*models.GradeAuditEntry{}}
	svc := NewGradeService(store, audits, newRosterStub(), nil, nil, nil)

	comp, _, err := svc.RecordGradeChange(context.Background(), &models.Actor{ID: "t-1", Role: models.RoleTeacher}, RecordGradeRequest{
		TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1",
		ComponentType: models.ComponentRegular1, Value: f(8),
	})
	require.NoError(t, err)
	audits.latest[comp.ID] = &models.GradeAuditEntry{GradeID: comp.ID, ChangedBy: "t-1"}

	_, entry, err := svc.RecordGradeChange(context.Background(), &models.Actor{ID: "t-2", Role: models.RoleTeacher}, RecordGradeRequest{
		TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1",
		ComponentType: models.ComponentRegular1, Value: f(5),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusPending, entry.Status)

	// Admins bypass review regardless of authorship.
	_, entry, err = svc.RecordGradeChange(context.Background(), &models.Actor{ID: "adm-1", Role: models.RoleAdmin}, RecordGradeRequest{
		TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1",
		ComponentType: models.ComponentRegular1, Value: f(6),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusApproved, entry.Status)
}

func TestRecordGradeChangeLockedCellPendsReview(t *testing.T) {
	store := newComponentStoreStub()
	svc := NewGradeService(store, &auditReaderStub{}, newRosterStub(), nil, nil, nil)
	actor := &models.Actor{ID: "t-1", Role: models.RoleTeacher}

	_, _, err := svc.RecordGradeChange(context.Background(), actor, RecordGradeRequest{
		TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1",
		ComponentType: models.ComponentFinal, Value: f(8), Lock: true,
	})
	require.NoError(t, err)

	_, entry, err := svc.RecordGradeChange(context.Background(), actor, RecordGradeRequest{
		TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1",
		ComponentType: models.ComponentFinal, Value: f(9),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusPending, entry.Status)
}

func TestRecordGradeChangeInvalidatesSummaryCache(t *testing.T) {
	store := newComponentStoreStub()
	cache := newCacheStub()
	scope := models.GradeScope{TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1"}
	cache.SetSummary(context.Background(), scope, 7.2)
	svc := NewGradeService(store, &auditReaderStub{}, newRosterStub(), cache, nil, nil)

	_, _, err := svc.RecordGradeChange(context.Background(), &models.Actor{ID: "t-1", Role: models.RoleTeacher}, RecordGradeRequest{
		TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1",
		ComponentType: models.ComponentRegular1, Value: f(4),
	})
	require.NoError(t, err)
	_, cached := cache.GetSummary(context.Background(), scope)
	assert.False(t, cached)
	assert.Equal(t, 1, cache.deletes)
}

func TestRecordGradeChangeIdempotentCellDoubleAudit(t *testing.T) {
	store := newComponentStoreStub()
	svc := NewGradeService(store, &auditReaderStub{}, newRosterStub(), nil, nil, nil)
	actor := &models.Actor{ID: "adm-1", Role: models.RoleAdmin}

	first, _, err := svc.RecordGradeChange(context.Background(), actor, RecordGradeRequest{
		TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1",
		ComponentType: models.ComponentMidterm, Value: f(7),
	})
	require.NoError(t, err)
	second, _, err := svc.RecordGradeChange(context.Background(), actor, RecordGradeRequest{
		TermID: "sem1", StudentID: "st-1", SubjectID: "math", ClassID: "cls-1",
		ComponentType: models.ComponentMidterm, Value: f(7.5), Reason: "recount",
	})
	require.NoError(t, err)

	// One cell, two ledger entries.
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.audits, 2)
}
