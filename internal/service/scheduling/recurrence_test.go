package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medilink/clinic-api/internal/model"
)

func template(start time.Time, d time.Duration) *model.Appointment {
	return &model.Appointment{
		PatientID:   "patient-1",
		PatientName: "Ana Torres",
		ClinicianID: "clinician-1",
		Title:       "Control",
		Description: "Blood pressure follow up",
		Category:    model.CategoryGeneralConsultation,
		Start:       start,
		End:         start.Add(d),
		Status:      model.AppointmentStatusConfirmed,
	}
}

func TestExpandWeekly(t *testing.T) {
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	tpl := template(start, 30*time.Minute)

	out := Expand(tpl, model.FrequencyWeekly, 4)
	require.Len(t, out, 4)

	for k, apt := range out {
		assert.Equal(t, start.AddDate(0, 0, 7*k), apt.Start, "instance %d", k)
		assert.Equal(t, 30*time.Minute, apt.End.Sub(apt.Start))
		assert.Equal(t, tpl.PatientID, apt.PatientID)
		assert.Equal(t, tpl.Title, apt.Title)
		assert.Equal(t, tpl.Description, apt.Description)
		assert.Equal(t, tpl.Category, apt.Category)
		assert.NotSame(t, tpl, apt)
	}
}

func TestExpandDaily(t *testing.T) {
	start := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	out := Expand(template(start, time.Hour), model.FrequencyDaily, 3)
	require.Len(t, out, 3)
	assert.Equal(t, start, out[0].Start)
	assert.Equal(t, start.AddDate(0, 0, 1), out[1].Start)
	assert.Equal(t, start.AddDate(0, 0, 2), out[2].Start)
}

func TestExpandMonthlyNormalisesShortMonths(t *testing.T) {
	loc := time.FixedZone("COT", -5*60*60)
	start := time.Date(2025, 1, 31, 10, 0, 0, 0, loc)

	out := Expand(template(start, 45*time.Minute), model.FrequencyMonthly, 2)
	require.Len(t, out, 2)
	assert.Equal(t, start, out[0].Start)
	assert.Equal(t, time.Date(2025, 3, 3, 10, 0, 0, 0, loc), out[1].Start)
	assert.Equal(t, loc, out[1].Start.Location())
	assert.Equal(t, 45*time.Minute, out[1].End.Sub(out[1].Start))
}

func TestExpandOffsetsFromTemplate(t *testing.T) {
	start := time.Date(2025, 1, 31, 8, 0, 0, 0, time.UTC)
	out := Expand(template(start, time.Hour), model.FrequencyMonthly, 3)
	require.Len(t, out, 3)
	// Jan 31 + 2 months is Mar 31, not Mar 3 + 1 month.
	assert.Equal(t, time.Date(2025, 3, 31, 8, 0, 0, 0, time.UTC), out[2].Start)
}

func TestExpandKeepsDurationAcrossMidnight(t *testing.T) {
	start := time.Date(2025, 1, 31, 23, 30, 0, 0, time.UTC)
	out := Expand(template(start, time.Hour), model.FrequencyMonthly, 2)
	require.Len(t, out, 2)
	assert.True(t, out[1].End.After(out[1].Start))
	assert.Equal(t, time.Hour, out[1].End.Sub(out[1].Start))
}

func TestExpandInvalid(t *testing.T) {
	tpl := template(time.Now(), time.Hour)

	assert.Nil(t, Expand(tpl, model.FrequencyWeekly, 0))
	assert.Nil(t, Expand(tpl, model.FrequencyWeekly, -3))
	assert.Nil(t, Expand(tpl, model.Frequency("yearly"), 2))

	single := Expand(tpl, model.FrequencyDaily, 1)
	require.Len(t, single, 1)
	assert.Equal(t, tpl.Start, single[0].Start)
}
