package email

import (
	"bytes"
	"fmt"
	"html/template"
)

const TemplateAppointmentConfirmation = "appointment_confirmation"

var templates = template.Must(template.New(TemplateAppointmentConfirmation).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
<p>Hola {{.patient_name}},</p>
<p>Tu cita <strong>{{.appointment_title}}</strong> ha sido agendada para el {{.appointment_date}} a las {{.appointment_time}}.</p>
<p>{{.appointment_description}}</p>
{{if .calendar_link}}<p><a href="{{.calendar_link}}">Agregar a Google Calendar</a></p>{{end}}
</body>
</html>
`))

// Render executes the named template with data.
func Render(name string, data map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
