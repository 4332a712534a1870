package entity

import "time"

// Service — услуга из каталога барбершопа.
type Service struct {
	ID              int64     `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Price           float64   `json:"price" db:"price"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Barber — мастер. WorkStart/WorkEnd в формате "15:04"; пустые значения
// означают график по умолчанию 09:00–18:00.
type Barber struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	TelegramID string    `json:"telegram_id" db:"telegram_id"`
	WorkStart  string    `json:"work_start" db:"work_start"`
	WorkEnd    string    `json:"work_end" db:"work_end"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type Client struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Phone      string    `json:"phone" db:"phone"`
	TelegramID string    `json:"telegram_id" db:"telegram_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Staff — сотрудник, получающий служебные уведомления.
type Staff struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	TelegramID string    `json:"telegram_id" db:"telegram_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
