package model

import (
	"slices"
	"time"
)

type UserRole string

const (
	UserRoleStudent UserRole = "STUDENT"
	UserRoleTeacher UserRole = "TEACHER"
	UserRoleAdmin   UserRole = "ADMIN"
)

type User struct {
	ID             int64     `json:"id"`
	Role           UserRole  `json:"role"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"` // для push-уведомлений
	RegularTimes   []int64   `json:"regular_times"`              // свободное регулярное время
	CreatedAt      time.Time `json:"created_at"`
}

// HasRegularTime указано ли время в доступных регулярных слотах пользователя
func (u *User) HasRegularTime(offset int64) bool {
	return slices.Contains(u.RegularTimes, offset)
}
