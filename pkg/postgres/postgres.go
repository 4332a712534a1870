package postgres

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/barberhub/booking-service/config"

	_ "github.com/lib/pq"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to PostgreSQL")
	return db, nil
}

func RunMigrations(db *sql.DB) error {
	// Read migration files and execute them
	// This is a simplified version - you might want to use a proper migration tool
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS services (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			price NUMERIC(10,2) NOT NULL DEFAULT 0,
			duration_minutes INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS barbers (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			telegram_id VARCHAR(100) DEFAULT '',
			work_start VARCHAR(5) DEFAULT '',
			work_end VARCHAR(5) DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS clients (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(32) UNIQUE NOT NULL,
			telegram_id VARCHAR(100) DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS staff (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			telegram_id VARCHAR(100) DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id SERIAL PRIMARY KEY,
			client_id INTEGER REFERENCES clients(id),
			barber_id INTEGER REFERENCES barbers(id),
			service_id INTEGER REFERENCES services(id),
			date DATE NOT NULL,
			time VARCHAR(5) NOT NULL,
			start_at TIMESTAMPTZ NOT NULL,
			end_at TIMESTAMPTZ NOT NULL,
			status VARCHAR(20) DEFAULT 'pending',
			comment TEXT DEFAULT '',
			notification_sent BOOLEAN DEFAULT FALSE,
			reminder_1_day_sent BOOLEAN DEFAULT FALSE,
			reminder_3_hours_sent BOOLEAN DEFAULT FALSE,
			reminder_1_hour_sent BOOLEAN DEFAULT FALSE,
			completion_notification_sent BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_bookings_barber_date ON bookings(barber_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_start_at ON bookings(start_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_end_at ON bookings(end_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_group ON bookings(client_id, barber_id, date, time)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %v", err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
