package notification

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Handler обрабатывает событие из очереди
type Handler interface {
	Handle(ctx context.Context, event Event)
}

// Queue ограниченная очередь событий в памяти процесса.
// Publish никогда не блокирует вызывающего: при переполнении событие отбрасывается.
type Queue struct {
	events chan Event
	logger *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewQueue создаёт очередь заданного размера
func NewQueue(size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{
		events: make(chan Event, size),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Publish ставит событие в очередь
func (q *Queue) Publish(event Event) {
	select {
	case <-q.done:
		q.logger.Warn("Notification queue closed, event dropped",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", string(event.Type)))
		return
	default:
	}

	select {
	case q.events <- event:
	default:
		q.logger.Warn("Notification queue full, event dropped",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", string(event.Type)),
			zap.Int64("regular_calendar_id", event.RegularCalendarID))
	}
}

// Run читает события и передаёт их обработчику, пока не отменён ctx или не вызван Close.
// После Close оставшиеся в буфере события обрабатываются.
func (q *Queue) Run(ctx context.Context, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-q.events:
			q.handle(ctx, h, event)
		case <-q.done:
			for {
				select {
				case event := <-q.events:
					q.handle(ctx, h, event)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) handle(ctx context.Context, h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Notification handler panicked",
				zap.String("event_id", event.ID.String()),
				zap.Any("panic", r))
		}
	}()
	h.Handle(ctx, event)
}

// Close останавливает приём событий
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Len сколько событий ждёт обработки
func (q *Queue) Len() int {
	return len(q.events)
}
