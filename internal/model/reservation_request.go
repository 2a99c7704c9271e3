package model

import "time"

// ReservationRequest заявка студента на паузу в обучении
type ReservationRequest struct {
	ID        int64                    `json:"id"`
	StudentID int64                    `json:"student_id"`
	Status    ReservationRequestStatus `json:"status"`
	StartTime time.Time                `json:"start_time"`
	EndTime   time.Time                `json:"end_time"`
	CreatedAt time.Time                `json:"created_at"`
}

type ReservationRequestStatus string

const (
	ReservationStatusPending  ReservationRequestStatus = "PENDING"
	ReservationStatusApproved ReservationRequestStatus = "APPROVED"
	ReservationStatusPaid     ReservationRequestStatus = "PAID"
	ReservationStatusRejected ReservationRequestStatus = "REJECTED"
	ReservationStatusCancel   ReservationRequestStatus = "CANCEL"
)

// IsApproved одобрена или оплачена
func (r *ReservationRequest) IsApproved() bool {
	return r.Status == ReservationStatusApproved || r.Status == ReservationStatusPaid
}

// Covers попадает ли момент в период паузы
func (r *ReservationRequest) Covers(t time.Time) bool {
	return !t.Before(r.StartTime) && !t.After(r.EndTime)
}
