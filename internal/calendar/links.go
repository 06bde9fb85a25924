package calendar

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/medilink/clinic-api/internal/model"
)

const (
	googleRenderURL = "https://www.google.com/calendar/render"
	outlookURL      = "https://outlook.live.com/calendar/0/deeplink/compose"

	basicUTC = "20060102T150405Z"
	isoUTC   = "2006-01-02T15:04:05.000Z"
)

// escape percent-encodes s the way browsers encode URI components.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// GoogleLink returns a render link that opens the event form prefilled.
func GoogleLink(title, details string, start, end time.Time) string {
	return fmt.Sprintf("%s?action=TEMPLATE&text=%s&details=%s&dates=%s/%s",
		googleRenderURL,
		escape(title),
		escape(details),
		start.UTC().Format(basicUTC),
		end.UTC().Format(basicUTC),
	)
}

// OutlookLink returns an Outlook web compose deeplink.
func OutlookLink(title, body string, start, end time.Time) string {
	return fmt.Sprintf("%s?path=/calendar/action/compose&rru=addevent&subject=%s&body=%s&startdt=%s&enddt=%s",
		outlookURL,
		escape(title),
		escape(body),
		start.UTC().Format(isoUTC),
		end.UTC().Format(isoUTC),
	)
}

// Links builds both add-to-calendar links for an appointment.
func Links(apt *model.Appointment) model.CalendarLinks {
	return model.CalendarLinks{
		Google:  GoogleLink(apt.Title, apt.Description, apt.Start, apt.End),
		Outlook: OutlookLink(apt.Title, apt.Description, apt.Start, apt.End),
	}
}
