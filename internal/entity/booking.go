package entity

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusRejected  BookingStatus = "rejected"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// statusTransitions — исчерпывающая таблица переходов статусов.
// Всё, чего здесь нет, запрещено; rejected/cancelled/completed — терминальные.
var statusTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:  {BookingStatusApproved, BookingStatusRejected},
	BookingStatusApproved: {BookingStatusCompleted, BookingStatusCancelled},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusApproved, BookingStatusRejected,
		BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status machine allows moving to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

// ReminderFlag is the name of a persisted idempotency flag column.
type ReminderFlag string

const (
	FlagReminder1Day   ReminderFlag = "reminder_1_day_sent"
	FlagReminder3Hours ReminderFlag = "reminder_3_hours_sent"
	FlagReminder1Hour  ReminderFlag = "reminder_1_hour_sent"
	FlagReminder30Min  ReminderFlag = "notification_sent"
	FlagCompletion     ReminderFlag = "completion_notification_sent"
)

// Booking — одна строка на одну услугу внутри визита. Строки одного визита
// (группы) разделяют client_id, barber_id, date и time и всегда имеют общий
// end_at, рассчитанный из суммарной длительности всех услуг группы.
type Booking struct {
	ID        int64  `json:"id" db:"id"`
	ClientID  int64  `json:"client_id" db:"client_id"`
	BarberID  int64  `json:"barber_id" db:"barber_id"`
	ServiceID int64  `json:"service_id" db:"service_id"`
	Date      string `json:"date" db:"date"` // "2006-01-02"
	Time      string `json:"time" db:"time"` // "15:04", локальное время бизнеса

	StartAt time.Time `json:"start_at" db:"start_at"`
	EndAt   time.Time `json:"end_at" db:"end_at"`

	Status  BookingStatus `json:"status" db:"status"`
	Comment string        `json:"comment,omitempty" db:"comment"`

	NotificationSent           bool `json:"notification_sent" db:"notification_sent"`
	Reminder1DaySent           bool `json:"reminder_1_day_sent" db:"reminder_1_day_sent"`
	Reminder3HoursSent         bool `json:"reminder_3_hours_sent" db:"reminder_3_hours_sent"`
	Reminder1HourSent          bool `json:"reminder_1_hour_sent" db:"reminder_1_hour_sent"`
	CompletionNotificationSent bool `json:"completion_notification_sent" db:"completion_notification_sent"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// GroupKey идентифицирует визит: все строки с одинаковым ключом — одна группа.
type GroupKey struct {
	ClientID int64  `json:"client_id"`
	BarberID int64  `json:"barber_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

func (b *Booking) GroupKey() GroupKey {
	return GroupKey{
		ClientID: b.ClientID,
		BarberID: b.BarberID,
		Date:     b.Date,
		Time:     b.Time,
	}
}

func (k GroupKey) String() string {
	return fmt.Sprintf("%d/%d/%s/%s", k.ClientID, k.BarberID, k.Date, k.Time)
}

// FlagSet returns the value of the given idempotency flag on this row.
func (b *Booking) FlagSet(flag ReminderFlag) bool {
	switch flag {
	case FlagReminder1Day:
		return b.Reminder1DaySent
	case FlagReminder3Hours:
		return b.Reminder3HoursSent
	case FlagReminder1Hour:
		return b.Reminder1HourSent
	case FlagReminder30Min:
		return b.NotificationSent
	case FlagCompletion:
		return b.CompletionNotificationSent
	}
	return false
}
