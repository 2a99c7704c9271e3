package notification

import (
	"bytes"
	"fmt"
	"text/template"
)

// Recipient кому адресовано уведомление
type Recipient int

const (
	RecipientStudent Recipient = iota
	RecipientTeacher
)

type messageTemplate struct {
	recipients []Recipient
	subject    *template.Template
	body       *template.Template
}

// TemplateData данные для шаблонов уведомлений
type TemplateData struct {
	Event       Event
	StudentName string
	TeacherName string
	RegularTime string
	StartTime   string
	Reason      string
}

func mustTemplate(name, subject, body string, recipients ...Recipient) messageTemplate {
	return messageTemplate{
		recipients: recipients,
		subject:    template.Must(template.New(name + ".subject").Parse(subject)),
		body:       template.Must(template.New(name + ".body").Parse(body)),
	}
}

var templates = map[EventType]messageTemplate{
	EventSlotCreated: mustTemplate("slot_created",
		"Новое регулярное занятие",
		"Здравствуйте, {{.TeacherName}}! У вас новое регулярное занятие со студентом {{.StudentName}}: {{.RegularTime}}.",
		RecipientTeacher),
	EventSlotUpdated: mustTemplate("slot_updated",
		"Регулярное занятие изменено",
		"Регулярное занятие со студентом {{.StudentName}} изменено. Новое время: {{.RegularTime}}.",
		RecipientTeacher),
	EventSlotCancelRequested: mustTemplate("slot_cancel_requested",
		"Запрос на отмену регулярного занятия",
		"Учитель {{.TeacherName}} запросил отмену регулярного занятия {{.RegularTime}}. Причина: {{.Reason}}",
		RecipientTeacher),
	EventSlotCancelled: mustTemplate("slot_cancelled",
		"Регулярное занятие отменено",
		"Регулярное занятие {{.RegularTime}} отменено. Причина: {{.Reason}}",
		RecipientTeacher, RecipientStudent),
	EventSlotExpired: mustTemplate("slot_expired",
		"Срок пакета истёк",
		"Срок действия пакета истёк, регулярное занятие {{.RegularTime}} приостановлено до продления пакета.",
		RecipientTeacher, RecipientStudent),
	EventSlotFinished: mustTemplate("slot_finished",
		"Регулярные занятия завершены",
		"Все занятия пакета использованы, регулярное занятие {{.RegularTime}} завершено.",
		RecipientTeacher, RecipientStudent),
	EventSlotReactivated: mustTemplate("slot_reactivated",
		"Регулярное занятие возобновлено",
		"Пакет продлён, регулярное занятие {{.RegularTime}} снова активно.",
		RecipientTeacher, RecipientStudent),
	EventBookingCancelled: mustTemplate("booking_cancelled",
		"Занятие отменено",
		"Занятие {{.StartTime}} (UTC) отменено. Причина: {{.Reason}}",
		RecipientTeacher, RecipientStudent),
	EventPackageExpiring: mustTemplate("package_expiring",
		"Срок пакета скоро истекает",
		"{{.StudentName}}, срок действия вашего пакета скоро истекает. Продлите его, чтобы сохранить занятие {{.RegularTime}}.",
		RecipientStudent),
	EventLowRemainingClasses: mustTemplate("low_classes",
		"Заканчиваются занятия",
		"{{.StudentName}}, в вашем пакете осталось мало занятий. Регулярное занятие: {{.RegularTime}}.",
		RecipientStudent),
}

// render возвращает тему и текст уведомления
func (t messageTemplate) render(data TemplateData) (string, string, error) {
	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := t.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return subject.String(), body.String(), nil
}
