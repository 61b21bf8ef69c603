package application

import (
	"bytes"
	"text/template"
	"time"
)

const slotTimeLayout = "Monday, January 2 2006 at 3:04PM MST"

var messageTemplates = template.Must(template.New("messages").Funcs(template.FuncMap{
	"slotTime": func(t time.Time) string { return t.Format(slotTimeLayout) },
}).Parse(`
{{- define "booking_confirmation" -}}
Hello {{.Person.FirstName}},

Your home visit is booked for {{slotTime .Start}} until {{.End.Format "3:04PM MST"}}.

Address: {{.Household.Address}}

A calendar invitation is attached. If you need to cancel or change this
appointment, please reply to this message.
{{end}}

{{- define "booking_copy" -}}
New booking for {{slotTime .Start}} ({{.Slot.Name}}).

Name:    {{.Person.FullName}}
Email:   {{.Person.Email}}
Phone:   {{with .Person.PhoneNumber}}{{.}}{{else}}-{{end}}
Address: {{.Household.Address}}
{{with .Person.Notes}}Notes:   {{.}}
{{end}}
{{- end}}

{{- define "feedback" -}}
Feedback received ({{.Issue}}).

Name:  {{.Name}}
Email: {{.Email}}
Phone: {{with .PhoneNumber}}{{.}}{{else}}-{{end}}

{{.Comment}}
{{end}}
`))

type bookingView struct {
	BookedSlot
	Start time.Time
	End   time.Time
}

func renderMessage(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := messageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
