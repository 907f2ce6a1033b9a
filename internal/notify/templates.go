package notify

import (
	"bytes"
	htmltemplate "html/template"
	"text/template"

	"tenant-booking-api/internal/model"
)

type messageTemplate struct {
	subject string
	text    *template.Template
	html    *htmltemplate.Template
}

func newTemplate(name, subject, text, html string) messageTemplate {
	return messageTemplate{
		subject: subject,
		text:    template.Must(template.New(name).Parse(text)),
		html:    htmltemplate.Must(htmltemplate.New(name).Parse(html)),
	}
}

type templateSet struct {
	clientConfirm  messageTemplate
	stylistConfirm messageTemplate
	reminder       messageTemplate
}

// templateData is what every message body may reference.
type templateData struct {
	Service string
	Stylist string
	Client  string
	When    string
}

var templates = map[int]templateSet{
	localeES: {
		clientConfirm: newTemplate("client-confirm", "Confirmación de turno",
			`Has reservado {{.Service}} con {{.Stylist}} el {{.When}}.`,
			`<p>Has reservado <strong>{{.Service}}</strong> con <strong>{{.Stylist}}</strong> el <strong>{{.When}}</strong>.</p>`),
		stylistConfirm: newTemplate("stylist-confirm", "Nuevo turno reservado",
			`{{.Client}} reservó {{.Service}} el {{.When}}.`,
			`<p><strong>{{.Client}}</strong> reservó <strong>{{.Service}}</strong> el <strong>{{.When}}</strong>.</p>`),
		reminder: newTemplate("reminder", "Recordatorio de tu turno",
			`Recordatorio: {{.Service}} con {{.Stylist}} el {{.When}}.`,
			`<p>Recordatorio: <strong>{{.Service}}</strong> con <strong>{{.Stylist}}</strong> el <strong>{{.When}}</strong>.</p>`),
	},
	localeEN: {
		clientConfirm: newTemplate("client-confirm", "Appointment confirmed",
			`You booked {{.Service}} with {{.Stylist}} on {{.When}}.`,
			`<p>You booked <strong>{{.Service}}</strong> with <strong>{{.Stylist}}</strong> on <strong>{{.When}}</strong>.</p>`),
		stylistConfirm: newTemplate("stylist-confirm", "New appointment booked",
			`{{.Client}} booked {{.Service}} on {{.When}}.`,
			`<p><strong>{{.Client}}</strong> booked <strong>{{.Service}}</strong> on <strong>{{.When}}</strong>.</p>`),
		reminder: newTemplate("reminder", "Appointment reminder",
			`Reminder: {{.Service}} with {{.Stylist}} on {{.When}}.`,
			`<p>Reminder: <strong>{{.Service}}</strong> with <strong>{{.Stylist}}</strong> on <strong>{{.When}}</strong>.</p>`),
	},
}

func (mt messageTemplate) render(to, from string, data templateData) (model.Message, error) {
	var text, html bytes.Buffer
	if err := mt.text.Execute(&text, data); err != nil {
		return model.Message{}, err
	}
	if err := mt.html.Execute(&html, data); err != nil {
		return model.Message{}, err
	}
	return model.Message{
		To:      to,
		From:    from,
		Subject: mt.subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
