package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/internal/repository"
	"github.com/medilink/clinic-api/pkg/logger"
)

// mockRepo is a map-backed repository returning lists in insertion order,
// which is deliberately not sorted by start.
type mockRepo struct {
	items map[uuid.UUID]*model.Appointment
	order []uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: map[uuid.UUID]*model.Appointment{}}
}

func (m *mockRepo) Create(_ context.Context, apt *model.Appointment) error {
	apt.ID = uuid.New()
	m.items[apt.ID] = apt.Clone()
	m.order = append(m.order, apt.ID)
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return apt.Clone(), nil
}

func (m *mockRepo) Update(_ context.Context, id uuid.UUID, update *model.AppointmentUpdate) (*model.Appointment, error) {
	apt, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	update.Apply(apt)
	return apt.Clone(), nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockRepo) filter(keep func(*model.Appointment) bool) []*model.Appointment {
	var out []*model.Appointment
	for _, id := range m.order {
		if apt, ok := m.items[id]; ok && keep(apt) {
			out = append(out, apt.Clone())
		}
	}
	return out
}

func (m *mockRepo) ListByClinician(_ context.Context, clinicianID string) ([]*model.Appointment, error) {
	return m.filter(func(a *model.Appointment) bool { return a.ClinicianID == clinicianID }), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID string) ([]*model.Appointment, error) {
	return m.filter(func(a *model.Appointment) bool { return a.PatientID == patientID }), nil
}

func (m *mockRepo) ListUnsynced(_ context.Context, olderThan time.Time, limit int) ([]*model.Appointment, error) {
	out := m.filter(func(a *model.Appointment) bool {
		return a.SyncStatus != model.SyncStatusSynced && a.SyncStatus != model.SyncStatusNone && a.UpdatedAt.Before(olderThan)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var base = time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC)

func newAppointment(clinician, patient string, offset time.Duration) *model.Appointment {
	return &model.Appointment{
		ClinicianID: clinician,
		PatientID:   patient,
		Title:       "Control",
		Category:    model.CategoryGeneralConsultation,
		Start:       base.Add(offset),
		End:         base.Add(offset + 30*time.Minute),
	}
}

func TestCreate(t *testing.T) {
	svc := NewService(newMockRepo(), logger.Nop())

	apt, err := svc.Create(context.Background(), newAppointment("c1", "p1", 0))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, apt.ID)
	assert.Equal(t, model.AppointmentStatusScheduled, apt.Status)
	assert.Equal(t, "#3b82f6", apt.Color)
	assert.False(t, apt.CreatedAt.IsZero())
}

func TestCreateRejectsInvalid(t *testing.T) {
	svc := NewService(newMockRepo(), logger.Nop())

	apt := newAppointment("c1", "p1", 0)
	apt.End = apt.Start
	_, err := svc.Create(context.Background(), apt)
	assert.ErrorIs(t, err, model.ErrInvalidTimeRange)

	apt = newAppointment("c1", "p1", 0)
	apt.End = apt.Start.Add(-time.Minute)
	_, err = svc.Create(context.Background(), apt)
	assert.ErrorIs(t, err, model.ErrInvalidTimeRange)

	apt = newAppointment("c1", "p1", 0)
	apt.Category = "dentistry"
	_, err = svc.Create(context.Background(), apt)
	assert.ErrorIs(t, err, model.ErrInvalidCategory)

	apt = newAppointment("c1", "p1", 0)
	apt.Status = "maybe"
	_, err = svc.Create(context.Background(), apt)
	assert.ErrorIs(t, err, model.ErrInvalidStatus)
}

func TestListOrdering(t *testing.T) {
	svc := NewService(newMockRepo(), logger.Nop())
	ctx := context.Background()

	for _, offset := range []time.Duration{48 * time.Hour, 0, 72 * time.Hour, 24 * time.Hour} {
		_, err := svc.Create(ctx, newAppointment("c1", "p1", offset))
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, newAppointment("c2", "p2", time.Hour))
	require.NoError(t, err)

	forClinician, err := svc.ListForClinician(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, forClinician, 4)
	for i := 1; i < len(forClinician); i++ {
		assert.False(t, forClinician[i].Start.Before(forClinician[i-1].Start), "clinician list must be ascending")
	}

	forPatient, err := svc.ListForPatient(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, forPatient, 4)
	for i := 1; i < len(forPatient); i++ {
		assert.False(t, forPatient[i].Start.After(forPatient[i-1].Start), "patient list must be descending")
	}

	none, err := svc.ListForClinician(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetMissing(t *testing.T) {
	svc := NewService(newMockRepo(), logger.Nop())
	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrAppointmentNotFound)
}

func TestUpdate(t *testing.T) {
	svc := NewService(newMockRepo(), logger.Nop())
	ctx := context.Background()
	apt, err := svc.Create(ctx, newAppointment("c1", "p1", 0))
	require.NoError(t, err)

	category := model.CategorySurgery
	title := "Pre-op"
	updated, err := svc.Update(ctx, apt.ID, &model.AppointmentUpdate{Title: &title, Category: &category})
	require.NoError(t, err)
	assert.Equal(t, "Pre-op", updated.Title)
	assert.Equal(t, model.CategorySurgery, updated.Category)
	assert.Equal(t, "#ef4444", updated.Color)
	assert.Equal(t, apt.Start, updated.Start)
}

func TestUpdateValidatesMergedRange(t *testing.T) {
	svc := NewService(newMockRepo(), logger.Nop())
	ctx := context.Background()
	apt, err := svc.Create(ctx, newAppointment("c1", "p1", 0))
	require.NoError(t, err)

	// Moving only the start past the stored end is rejected.
	start := apt.End.Add(time.Minute)
	_, err = svc.Update(ctx, apt.ID, &model.AppointmentUpdate{Start: &start})
	assert.ErrorIs(t, err, model.ErrInvalidTimeRange)

	// Moving both keeps the range valid.
	end := start.Add(time.Hour)
	updated, err := svc.Update(ctx, apt.ID, &model.AppointmentUpdate{Start: &start, End: &end})
	require.NoError(t, err)
	assert.Equal(t, start, updated.Start)

	bad := model.AppointmentStatus("lost")
	_, err = svc.Update(ctx, apt.ID, &model.AppointmentUpdate{Status: &bad})
	assert.ErrorIs(t, err, model.ErrInvalidStatus)
}

func TestUpdateEmptyReturnsCurrent(t *testing.T) {
	svc := NewService(newMockRepo(), logger.Nop())
	ctx := context.Background()
	apt, err := svc.Create(ctx, newAppointment("c1", "p1", 0))
	require.NoError(t, err)

	got, err := svc.Update(ctx, apt.ID, &model.AppointmentUpdate{})
	require.NoError(t, err)
	assert.Equal(t, apt.ID, got.ID)

	title := "x"
	_, err = svc.Update(ctx, uuid.New(), &model.AppointmentUpdate{Title: &title})
	assert.ErrorIs(t, err, model.ErrAppointmentNotFound)
}

func TestDelete(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, logger.Nop())
	ctx := context.Background()
	apt, err := svc.Create(ctx, newAppointment("c1", "p1", 0))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, apt.ID))
	assert.Empty(t, repo.items)
	assert.ErrorIs(t, svc.Delete(ctx, apt.ID), model.ErrAppointmentNotFound)
}
