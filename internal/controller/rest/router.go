package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type requestIDKey struct{}

// NewRouter собирает маршруты API.
// Администратор управляет расписаниями, учитель видит свои и может запросить отмену.
func NewRouter(h *Handler, auth *Authenticator, allowedOrigins []string, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(withRequestID)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeOK(w, "ok", nil)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Route("/regular-calendars", func(r chi.Router) {
			r.With(RequireRole(model.UserRoleTeacher)).Put("/{id}/request-cancel", h.RequestCancel)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(model.UserRoleAdmin))

				r.Get("/", h.ListRegularCalendars)
				r.Post("/", h.CreateRegularCalendar)
				r.Post("/sweep", h.Sweep)
				r.Post("/auto-schedule", h.AutoScheduleAll)
				r.Get("/{id}", h.GetRegularCalendar)
				r.Put("/{id}", h.EditRegularCalendar)
				r.Delete("/{id}", h.DeleteRegularCalendar)
				r.Post("/{id}/auto-schedule", h.AutoScheduleOne)
				r.Post("/{id}/auto-schedule-attempts", h.RecordAutoScheduleAttempt)
			})
		})

		r.With(RequireRole(model.UserRoleTeacher)).Get("/teacher/regular-calendars", h.ListTeacherRegularCalendars)
	})

	return r
}

// withRequestID берёт X-Request-ID клиента или генерирует новый
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", requestID(r.Context())))
		})
	}
}
