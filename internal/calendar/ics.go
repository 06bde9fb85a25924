package calendar

import (
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/medilink/clinic-api/internal/model"
)

const (
	ProductID      = "-//MediLink//NONSGML v1.0//EN"
	ICSContentType = "text/calendar; charset=utf-8"
)

// Invite renders a single-event iCalendar document for the appointment.
// Lines are CRLF terminated and instants are written in UTC.
func Invite(apt *model.Appointment, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ics.MethodPublish)

	event := cal.AddEvent(apt.ID.String() + "@medilink")
	event.SetDtStampTime(stamp.UTC())
	event.SetStartAt(apt.Start.UTC())
	event.SetEndAt(apt.End.UTC())
	event.SetSummary(apt.Title)
	event.SetDescription(apt.Description)

	return cal.Serialize()
}
