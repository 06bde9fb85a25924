package scheduling

import (
	"time"

	"github.com/medilink/clinic-api/internal/model"
)

// Expand returns count independent copies of template. Copy k is offset
// from the template by k frequency units: k days, 7k days, or k calendar
// months. Month arithmetic follows time.AddDate normalisation, so
// Jan 31 + 1 month lands on Mar 3 (Mar 2 in leap years). Offsets are always
// taken from the template, never from the previous copy.
//
// A non-positive count or an unknown frequency yields nil.
func Expand(template *model.Appointment, freq model.Frequency, count int) []*model.Appointment {
	if count <= 0 || !freq.Valid() {
		return nil
	}

	duration := template.End.Sub(template.Start)
	out := make([]*model.Appointment, 0, count)
	for k := 0; k < count; k++ {
		sibling := template.Clone()
		sibling.Start = shift(template.Start, freq, k)
		sibling.End = shift(template.End, freq, k)
		// Month rollover can pull an end that crosses midnight behind its
		// start; keep the template's length in that case.
		if !sibling.End.After(sibling.Start) {
			sibling.End = sibling.Start.Add(duration)
		}
		out = append(out, sibling)
	}
	return out
}

func shift(t time.Time, freq model.Frequency, k int) time.Time {
	switch freq {
	case model.FrequencyDaily:
		return t.AddDate(0, 0, k)
	case model.FrequencyWeekly:
		return t.AddDate(0, 0, 7*k)
	case model.FrequencyMonthly:
		return t.AddDate(0, k, 0)
	}
	return t
}
