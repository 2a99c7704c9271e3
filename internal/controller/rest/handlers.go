package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/Freeeeeet/tutor_schedule/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler HTTP-обработчики регулярных расписаний
type Handler struct {
	calendars *service.RegularCalendarService
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewHandler(calendars *service.RegularCalendarService, logger *zap.Logger) *Handler {
	return &Handler{
		calendars: calendars,
		validate:  validator.New(),
		logger:    logger,
	}
}

// ListRegularCalendars GET /regular-calendars
func (h *Handler) ListRegularCalendars(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	items, total, err := h.calendars.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	limit, offset := filter.Window()
	writeOK(w, "ok", Page[*model.RegularCalendar]{
		Items: nonNil(items),
		Total: total,
		Page:  offset/limit + 1,
		Size:  limit,
	})
}

// ListTeacherRegularCalendars GET /teacher/regular-calendars - расписания текущего учителя
func (h *Handler) ListTeacherRegularCalendars(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	principal := PrincipalFrom(r.Context())
	items, total, err := h.calendars.ListForTeacher(r.Context(), principal.UserID, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	limit, offset := filter.Window()
	writeOK(w, "ok", Page[*model.RegularCalendar]{
		Items: nonNil(items),
		Total: total,
		Page:  offset/limit + 1,
		Size:  limit,
	})
}

// GetRegularCalendar GET /regular-calendars/{id}
func (h *Handler) GetRegularCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	rc, err := h.calendars.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, "ok", rc)
}

// CreateRegularCalendar POST /regular-calendars
func (h *Handler) CreateRegularCalendar(w http.ResponseWriter, r *http.Request) {
	var req CreateRegularCalendarRequest
	if !h.decode(w, r, &req) {
		return
	}

	rc, err := h.calendars.Create(r.Context(), req.toInput())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, "regular calendar created", rc)
}

// EditRegularCalendar PUT /regular-calendars/{id}
func (h *Handler) EditRegularCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req EditRegularCalendarRequest
	if !h.decode(w, r, &req) {
		return
	}

	rc, err := h.calendars.Edit(r.Context(), id, req.toDiff())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, "regular calendar updated", rc)
}

// DeleteRegularCalendar DELETE /regular-calendars/{id}
func (h *Handler) DeleteRegularCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.calendars.Remove(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, "regular calendar deleted", nil)
}

// RequestCancel PUT /regular-calendars/{id}/request-cancel
func (h *Handler) RequestCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req RequestCancelRequest
	if !h.decode(w, r, &req) {
		return
	}

	principal := PrincipalFrom(r.Context())
	rc, err := h.calendars.RequestCancel(r.Context(), id, principal.UserID, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, "cancel request processed", rc)
}

// RecordAutoScheduleAttempt POST /regular-calendars/{id}/auto-schedule-attempts
func (h *Handler) RecordAutoScheduleAttempt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req AutoScheduleAttemptRequest
	if !h.decode(w, r, &req) {
		return
	}

	rc, err := h.calendars.RecordAutoScheduleAttempt(r.Context(), id, req.toAttempt())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, "auto schedule attempt recorded", rc)
}

// AutoScheduleOne POST /regular-calendars/{id}/auto-schedule
func (h *Handler) AutoScheduleOne(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	rc, err := h.calendars.AutoScheduleOne(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, "auto schedule completed", rc)
}

// AutoScheduleAll POST /regular-calendars/auto-schedule
func (h *Handler) AutoScheduleAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.calendars.AutoScheduleAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, "auto schedule completed", report)
}

// Sweep POST /regular-calendars/sweep.
// Ошибки отдельных расписаний попадают в отчёт, ответ всегда успешный.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.calendars.DailySweep(r.Context())
	if err != nil {
		h.logger.Error("Sweep finished with error", zap.Error(err))
	}
	writeOK(w, "sweep completed", report)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeBadRequest(w, err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, fmt.Sprintf("invalid id: %q", raw))
		return 0, false
	}
	return id, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
