package notification

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"go.uber.org/zap"
)

// UserLookup поиск получателей уведомлений
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Dispatcher превращает доменные события в письма и push-уведомления.
// Ошибки доставки только логируются.
type Dispatcher struct {
	users  UserLookup
	mailer Mailer
	pusher Pusher
	logger *zap.Logger
}

func NewDispatcher(users UserLookup, mailer Mailer, pusher Pusher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		users:  users,
		mailer: mailer,
		pusher: pusher,
		logger: logger,
	}
}

// Handle обрабатывает одно событие
func (d *Dispatcher) Handle(ctx context.Context, event Event) {
	tmpl, ok := templates[event.Type]
	if !ok {
		d.logger.Warn("No template for event", zap.String("event_type", string(event.Type)))
		return
	}

	student := d.lookup(ctx, event.StudentID, event)
	teacher := d.lookup(ctx, event.TeacherID, event)

	data := TemplateData{
		Event:       event,
		RegularTime: FormatRegularTime(event.RegularStartTime),
		Reason:      event.Reason,
	}
	if student != nil {
		data.StudentName = student.FullName
	}
	if teacher != nil {
		data.TeacherName = teacher.FullName
	}
	if start, ok := event.Data["start_time"].(time.Time); ok {
		data.StartTime = FormatDateTime(start)
	}

	subject, body, err := tmpl.render(data)
	if err != nil {
		d.logger.Error("Failed to render notification",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return
	}

	for _, r := range tmpl.recipients {
		receiver := student
		if r == RecipientTeacher {
			receiver = teacher
		}
		if receiver == nil {
			continue
		}
		d.deliver(ctx, event, receiver, subject, body)
	}
}

func (d *Dispatcher) lookup(ctx context.Context, id int64, event Event) *model.User {
	if id == 0 {
		return nil
	}
	user, err := d.users.GetByID(ctx, id)
	if err != nil {
		d.logger.Error("Failed to load notification receiver",
			zap.String("event_id", event.ID.String()),
			zap.Int64("user_id", id),
			zap.Error(err))
		return nil
	}
	return user
}

func (d *Dispatcher) deliver(ctx context.Context, event Event, receiver *model.User, subject, body string) {
	payload := map[string]any{
		"regular_calendar_id": event.RegularCalendarID,
		"booking_id":          event.BookingID,
		"regular_start_time":  event.RegularStartTime,
	}

	if receiver.Email != "" {
		err := d.mailer.SendMailWithTemplate(ctx, Mail{
			To:      receiver.Email,
			ToName:  receiver.FullName,
			Subject: subject,
			Body:    body,
			Data:    payload,
		})
		if err != nil {
			d.logger.Warn("Failed to send notification mail",
				zap.String("event_id", event.ID.String()),
				zap.Int64("user_id", receiver.ID),
				zap.Error(err))
		}
	}

	err := d.pusher.PublishEvent(ctx, Push{
		Template:      string(event.Type),
		Data:          payload,
		Receiver:      receiver.ID,
		ChatID:        receiver.TelegramChatID,
		TemplateObjID: event.ID.String(),
		Text:          subject + "\n\n" + body,
	})
	if err != nil {
		d.logger.Warn("Failed to publish push notification",
			zap.String("event_id", event.ID.String()),
			zap.Int64("user_id", receiver.ID),
			zap.Error(err))
	}
}
