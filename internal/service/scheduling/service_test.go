package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medilink/clinic-api/internal/calendar"
	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/internal/service/consultation"
	"github.com/medilink/clinic-api/pkg/logger"
	"github.com/medilink/clinic-api/pkg/messaging"
)

type callLog []string

func (l *callLog) add(call string) { *l = append(*l, call) }

type fakeRecords struct {
	calls     *callLog
	items     map[uuid.UUID]*model.Appointment
	createErr error
	updateErr error
}

func newFakeRecords(calls *callLog) *fakeRecords {
	return &fakeRecords{calls: calls, items: map[uuid.UUID]*model.Appointment{}}
}

func (f *fakeRecords) Create(_ context.Context, apt *model.Appointment) (*model.Appointment, error) {
	f.calls.add("records.create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	apt.ID = uuid.New()
	f.items[apt.ID] = apt.Clone()
	return apt, nil
}

func (f *fakeRecords) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := f.items[id]
	if !ok {
		return nil, model.ErrAppointmentNotFound
	}
	return apt.Clone(), nil
}

func (f *fakeRecords) Update(_ context.Context, id uuid.UUID, update *model.AppointmentUpdate) (*model.Appointment, error) {
	f.calls.add("records.update")
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	apt, ok := f.items[id]
	if !ok {
		return nil, model.ErrAppointmentNotFound
	}
	update.Apply(apt)
	return apt.Clone(), nil
}

func (f *fakeRecords) Delete(_ context.Context, id uuid.UUID) error {
	f.calls.add("records.delete")
	if _, ok := f.items[id]; !ok {
		return model.ErrAppointmentNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeCalendar struct {
	calls     *callLog
	pushed    []string
	statuses  []model.AppointmentStatus
	removed   []string
	nextID    int
	pushErr   error
	removeErr error
}

func (f *fakeCalendar) Push(_ context.Context, apt *model.Appointment) (string, error) {
	f.calls.add("calendar.push")
	f.pushed = append(f.pushed, apt.ForeignID())
	f.statuses = append(f.statuses, apt.Status)
	if f.pushErr != nil {
		return apt.ForeignID(), f.pushErr
	}
	if id := apt.ForeignID(); id != "" {
		return id, nil
	}
	f.nextID++
	return fmt.Sprintf("evt-%d", f.nextID), nil
}

func (f *fakeCalendar) Remove(_ context.Context, _, foreignID string) error {
	f.calls.add("calendar.remove")
	f.removed = append(f.removed, foreignID)
	return f.removeErr
}

type fakeNotifier struct {
	mu            sync.Mutex
	confirmations []*model.Appointment
	reminders     []*model.Appointment
	err           error
	// release, when set, holds confirmations until it is closed.
	release chan struct{}
	ctxErr  []error
}

func (f *fakeNotifier) SendConfirmation(ctx context.Context, apt *model.Appointment) error {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations = append(f.confirmations, apt)
	f.ctxErr = append(f.ctxErr, ctx.Err())
	return f.err
}

func (f *fakeNotifier) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.confirmations)
}

func (f *fakeNotifier) SendReminder(_ context.Context, apt *model.Appointment) error {
	f.reminders = append(f.reminders, apt)
	return f.err
}

type fakePatients map[string]*model.Patient

func (f fakePatients) Get(_ context.Context, id string) (*model.Patient, error) {
	p, ok := f[id]
	if !ok {
		return nil, model.ErrPatientNotFound
	}
	return p, nil
}

type fakeConsultations struct {
	filed map[uuid.UUID]*model.Consultation
}

func (f *fakeConsultations) Create(_ context.Context, apt *model.Appointment, in consultation.Input) (*model.Consultation, error) {
	if _, ok := f.filed[apt.ID]; ok {
		return nil, model.ErrConsultationExists
	}
	c := &model.Consultation{
		ID:            uuid.New(),
		AppointmentID: apt.ID,
		PatientID:     apt.PatientID,
		Observations:  in.Observations,
	}
	f.filed[apt.ID] = c
	return c, nil
}

func (f *fakeConsultations) GetByAppointment(_ context.Context, id uuid.UUID) (*model.Consultation, error) {
	c, ok := f.filed[id]
	if !ok {
		return nil, model.ErrConsultationNotFound
	}
	return c, nil
}

type fixture struct {
	calls         *callLog
	records       *fakeRecords
	calendar      *fakeCalendar
	notifier      *fakeNotifier
	consultations *fakeConsultations
	broker        *messaging.MemoryBroker
	service       *Service
}

func newFixture(withCalendar bool) *fixture {
	calls := &callLog{}
	f := &fixture{
		calls:         calls,
		records:       newFakeRecords(calls),
		calendar:      &fakeCalendar{calls: calls},
		notifier:      &fakeNotifier{},
		consultations: &fakeConsultations{filed: map[uuid.UUID]*model.Consultation{}},
		broker:        messaging.NewMemoryBroker(),
	}
	patients := fakePatients{
		"patient-1": {ID: "patient-1", FullName: "Ana Torres", Email: "ana@example.com", Phone: "+573001112233"},
	}
	opts := []Option{WithPublisher(messaging.NewPublisher(f.broker, "events"))}
	if withCalendar {
		opts = append(opts, WithCalendar(f.calendar))
	}
	f.service = NewService(f.records, f.notifier, patients, f.consultations, logger.Nop(), opts...)
	return f
}

func request() ScheduleRequest {
	start := time.Date(2025, 5, 5, 15, 0, 0, 0, time.UTC)
	return ScheduleRequest{
		ClinicianID:    "clinician-1",
		ClinicianEmail: "dr@example.com",
		PatientID:      "patient-1",
		Category:       model.CategoryGeneralConsultation,
		Start:          start,
		End:            start.Add(30 * time.Minute),
	}
}

func eventTypes(broker *messaging.MemoryBroker) []string {
	var out []string
	for _, msg := range broker.Published("events") {
		out = append(out, msg.(messaging.Message).Type)
	}
	return out
}

func TestScheduleSingle(t *testing.T) {
	f := newFixture(true)

	created, err := f.service.Schedule(context.Background(), request())
	require.NoError(t, err)
	require.Len(t, created, 1)

	apt := created[0]
	assert.Equal(t, "Consultation with Ana Torres", apt.Title)
	assert.Equal(t, "Ana Torres", apt.PatientName)
	assert.Equal(t, "ana@example.com", apt.PatientEmail)
	assert.Equal(t, model.AppointmentStatusConfirmed, apt.Status)
	assert.Equal(t, model.SyncStatusSynced, apt.SyncStatus)
	assert.Equal(t, "evt-1", apt.ForeignID())
	assert.Nil(t, apt.SyncError)

	f.service.Wait()
	assert.Equal(t, 1, f.notifier.sent())
	assert.Equal(t, []string{EventCreated}, eventTypes(f.broker))
	assert.Equal(t, callLog{"records.create", "calendar.push", "records.update"}, *f.calls)
}

func TestScheduleWithoutCalendar(t *testing.T) {
	f := newFixture(false)

	created, err := f.service.Schedule(context.Background(), request())
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, model.SyncStatusNone, created[0].SyncStatus)
	assert.Empty(t, f.calendar.pushed)
	assert.False(t, f.service.SyncEnabled())
}

func TestScheduleSeries(t *testing.T) {
	f := newFixture(true)
	req := request()
	req.Frequency = model.FrequencyWeekly
	req.Count = 4

	created, err := f.service.Schedule(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, created, 4)

	ids := map[uuid.UUID]bool{}
	for k, apt := range created {
		assert.Equal(t, req.Start.AddDate(0, 0, 7*k), apt.Start)
		assert.Equal(t, model.SyncStatusSynced, apt.SyncStatus)
		ids[apt.ID] = true
	}
	assert.Len(t, ids, 4)
	f.service.Wait()
	assert.Equal(t, 4, f.notifier.sent())
	assert.Len(t, f.calendar.pushed, 4)
}

func TestScheduleValidation(t *testing.T) {
	f := newFixture(true)

	req := request()
	req.End = req.Start
	_, err := f.service.Schedule(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrInvalidTimeRange)

	req = request()
	req.Category = "dentistry"
	_, err = f.service.Schedule(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrInvalidCategory)

	req = request()
	req.Count = 3
	req.Frequency = "hourly"
	_, err = f.service.Schedule(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrInvalidFrequency)

	req = request()
	req.PatientID = "nobody"
	_, err = f.service.Schedule(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrPatientNotFound)

	assert.Empty(t, f.records.items)
}

func TestScheduleStoreFailureStopsSeries(t *testing.T) {
	f := newFixture(true)
	f.records.createErr = errors.New("connection reset")
	req := request()
	req.Frequency = model.FrequencyDaily
	req.Count = 3

	created, err := f.service.Schedule(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, created)
	f.service.Wait()
	assert.Zero(t, f.notifier.sent())
}

func TestScheduleNotificationFailureIsNotFatal(t *testing.T) {
	f := newFixture(true)
	f.notifier.err = errors.New("smtp down")

	created, err := f.service.Schedule(context.Background(), request())
	require.NoError(t, err)
	assert.Len(t, created, 1)
	f.service.Wait()
	assert.Equal(t, 1, f.notifier.sent())
}

func TestConfirmationIsSentInBackground(t *testing.T) {
	f := newFixture(true)
	f.notifier.release = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	created, err := f.service.Schedule(ctx, request())
	require.NoError(t, err)
	require.Len(t, created, 1)
	cancel()

	assert.Zero(t, f.notifier.sent())
	assert.Equal(t, model.SyncStatusSynced, created[0].SyncStatus)

	close(f.notifier.release)
	f.service.Wait()
	require.Equal(t, 1, f.notifier.sent())
	assert.Equal(t, created[0].ID, f.notifier.confirmations[0].ID)
	// The send outlives the request that triggered it.
	assert.NoError(t, f.notifier.ctxErr[0])
}

func TestSyncOutcomes(t *testing.T) {
	t.Run("skipped without token", func(t *testing.T) {
		f := newFixture(true)
		f.calendar.pushErr = calendar.ErrSyncSkipped

		created, err := f.service.Schedule(context.Background(), request())
		require.NoError(t, err)
		assert.Equal(t, model.SyncStatusSkipped, created[0].SyncStatus)
		assert.Empty(t, created[0].ForeignID())
	})

	t.Run("failed push keeps the record", func(t *testing.T) {
		f := newFixture(true)
		f.calendar.pushErr = errors.New("backend error")

		created, err := f.service.Schedule(context.Background(), request())
		require.NoError(t, err)
		apt := created[0]
		assert.Equal(t, model.SyncStatusFailed, apt.SyncStatus)
		require.NotNil(t, apt.SyncError)
		assert.Contains(t, *apt.SyncError, "backend error")
		assert.Contains(t, f.records.items, apt.ID)
	})

	t.Run("state applied locally when persisting fails", func(t *testing.T) {
		f := newFixture(true)
		created, err := f.service.Schedule(context.Background(), request())
		require.NoError(t, err)

		f.records.updateErr = errors.New("read only")
		apt := f.service.Sync(context.Background(), created[0])
		assert.Equal(t, model.SyncStatusSynced, apt.SyncStatus)
		assert.Equal(t, "evt-1", apt.ForeignID())
	})
}

func TestEditPushesUpdate(t *testing.T) {
	f := newFixture(true)
	created, err := f.service.Schedule(context.Background(), request())
	require.NoError(t, err)
	id := created[0].ID

	title := "Follow up"
	updated, err := f.service.Edit(context.Background(), id, &model.AppointmentUpdate{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "Follow up", updated.Title)
	assert.Equal(t, model.SyncStatusSynced, updated.SyncStatus)
	// The second push carries the id returned by the first, so the
	// calendar updates instead of creating a duplicate.
	assert.Equal(t, []string{"", "evt-1"}, f.calendar.pushed)
	assert.Equal(t, "evt-1", updated.ForeignID())
	assert.Equal(t, []string{EventCreated, EventUpdated}, eventTypes(f.broker))
}

func TestCancelAndConfirm(t *testing.T) {
	f := newFixture(true)
	created, err := f.service.Schedule(context.Background(), request())
	require.NoError(t, err)
	id := created[0].ID

	cancelled, err := f.service.Cancel(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)

	confirmed, err := f.service.Confirm(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)

	// The cancel re-push carries the cancelled status to the same event.
	assert.Equal(t, []string{"", "evt-1", "evt-1"}, f.calendar.pushed)
	assert.Equal(t, []model.AppointmentStatus{
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusCancelled,
		model.AppointmentStatusConfirmed,
	}, f.calendar.statuses)

	assert.Equal(t, []string{EventCreated, EventCancelled, EventUpdated}, eventTypes(f.broker))
}

func TestEditMissing(t *testing.T) {
	f := newFixture(true)
	title := "x"
	_, err := f.service.Edit(context.Background(), uuid.New(), &model.AppointmentUpdate{Title: &title})
	assert.ErrorIs(t, err, model.ErrAppointmentNotFound)
}

func TestDeleteRemovesEventFirst(t *testing.T) {
	f := newFixture(true)
	created, err := f.service.Schedule(context.Background(), request())
	require.NoError(t, err)
	*f.calls = nil

	require.NoError(t, f.service.Delete(context.Background(), created[0].ID))

	assert.Equal(t, callLog{"calendar.remove", "records.delete"}, *f.calls)
	assert.Equal(t, []string{"evt-1"}, f.calendar.removed)
	assert.Empty(t, f.records.items)
	assert.Equal(t, []string{EventCreated, EventDeleted}, eventTypes(f.broker))
}

func TestDeleteProceedsWhenRemovalFails(t *testing.T) {
	f := newFixture(true)
	created, err := f.service.Schedule(context.Background(), request())
	require.NoError(t, err)
	f.calendar.removeErr = errors.New("timeout")

	require.NoError(t, f.service.Delete(context.Background(), created[0].ID))
	assert.Empty(t, f.records.items)
}

func TestDeleteWithoutForeignID(t *testing.T) {
	f := newFixture(true)
	f.calendar.pushErr = calendar.ErrSyncSkipped
	created, err := f.service.Schedule(context.Background(), request())
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(context.Background(), created[0].ID))
	assert.Empty(t, f.calendar.removed)
}

func TestComplete(t *testing.T) {
	f := newFixture(true)
	created, err := f.service.Schedule(context.Background(), request())
	require.NoError(t, err)
	id := created[0].ID

	apt, note, err := f.service.Complete(context.Background(), id, consultation.Input{Observations: "stable"})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, apt.Status)
	assert.Equal(t, id, note.AppointmentID)
	assert.Equal(t, "stable", note.Observations)

	_, _, err = f.service.Complete(context.Background(), id, consultation.Input{Observations: "again"})
	assert.ErrorIs(t, err, model.ErrConsultationExists)
}

func TestCompleteRetryAfterStatusWriteFailure(t *testing.T) {
	f := newFixture(true)
	created, err := f.service.Schedule(context.Background(), request())
	require.NoError(t, err)
	id := created[0].ID

	f.records.updateErr = errors.New("connection reset")
	_, note, err := f.service.Complete(context.Background(), id, consultation.Input{Observations: "stable"})
	require.Error(t, err)
	require.NotNil(t, note)
	assert.Equal(t, model.AppointmentStatusConfirmed, f.records.items[id].Status)

	f.records.updateErr = nil
	apt, retried, err := f.service.Complete(context.Background(), id, consultation.Input{Observations: "retry"})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, apt.Status)
	assert.Equal(t, note.ID, retried.ID)
	assert.Equal(t, "stable", retried.Observations)
	assert.Len(t, f.consultations.filed, 1)
	assert.Equal(t, []string{EventCreated, EventCompleted}, eventTypes(f.broker))
}

func TestSendReminder(t *testing.T) {
	f := newFixture(false)
	created, err := f.service.Schedule(context.Background(), request())
	require.NoError(t, err)

	require.NoError(t, f.service.SendReminder(context.Background(), created[0].ID))
	require.Len(t, f.notifier.reminders, 1)
	assert.Equal(t, created[0].ID, f.notifier.reminders[0].ID)

	err = f.service.SendReminder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrAppointmentNotFound)
}
