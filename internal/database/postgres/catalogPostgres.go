package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/barberhub/booking-service/internal/entity"
	"github.com/lib/pq"
)

type serviceRepository struct {
	db *sql.DB
}

func NewServiceRepository(db *sql.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) Create(ctx context.Context, service *entity.Service) error {
	query := `
		INSERT INTO services (name, price, duration_minutes)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, service.Name, service.Price, service.DurationMinutes).
		Scan(&service.ID, &service.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create service: %v", err)
	}

	return nil
}

func (r *serviceRepository) GetByID(ctx context.Context, id int64) (*entity.Service, error) {
	query := `SELECT id, name, price, duration_minutes, created_at FROM services WHERE id = $1`

	var s entity.Service
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&s.ID, &s.Name, &s.Price, &s.DurationMinutes, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, entity.ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %v", err)
	}

	return &s, nil
}

// GetByIDs returns services for every requested id; a missing id is an error
// because a booking group must never be built on a partial catalog read.
func (r *serviceRepository) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Service, error) {
	query := `SELECT id, name, price, duration_minutes, created_at FROM services WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get services: %v", err)
	}
	defer rows.Close()

	byID := make(map[int64]*entity.Service)
	for rows.Next() {
		var s entity.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Price, &s.DurationMinutes, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service: %v", err)
		}
		byID[s.ID] = &s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	services := make([]*entity.Service, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, entity.ErrServiceNotFound
		}
		services = append(services, s)
	}

	return services, nil
}

func (r *serviceRepository) GetAll(ctx context.Context) ([]*entity.Service, error) {
	query := `SELECT id, name, price, duration_minutes, created_at FROM services ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get services: %v", err)
	}
	defer rows.Close()

	var services []*entity.Service
	for rows.Next() {
		var s entity.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Price, &s.DurationMinutes, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service: %v", err)
		}
		services = append(services, &s)
	}

	return services, rows.Err()
}

type barberRepository struct {
	db *sql.DB
}

func NewBarberRepository(db *sql.DB) BarberRepository {
	return &barberRepository{db: db}
}

func (r *barberRepository) Create(ctx context.Context, barber *entity.Barber) error {
	query := `
		INSERT INTO barbers (name, telegram_id, work_start, work_end)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		barber.Name, barber.TelegramID, barber.WorkStart, barber.WorkEnd).
		Scan(&barber.ID, &barber.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create barber: %v", err)
	}

	return nil
}

func (r *barberRepository) GetByID(ctx context.Context, id int64) (*entity.Barber, error) {
	query := `SELECT id, name, telegram_id, work_start, work_end, created_at FROM barbers WHERE id = $1`

	var b entity.Barber
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&b.ID, &b.Name, &b.TelegramID, &b.WorkStart, &b.WorkEnd, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, entity.ErrBarberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get barber: %v", err)
	}

	return &b, nil
}

func (r *barberRepository) GetAll(ctx context.Context) ([]*entity.Barber, error) {
	query := `SELECT id, name, telegram_id, work_start, work_end, created_at FROM barbers ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get barbers: %v", err)
	}
	defer rows.Close()

	var barbers []*entity.Barber
	for rows.Next() {
		var b entity.Barber
		if err := rows.Scan(&b.ID, &b.Name, &b.TelegramID, &b.WorkStart, &b.WorkEnd, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan barber: %v", err)
		}
		barbers = append(barbers, &b)
	}

	return barbers, rows.Err()
}

type clientRepository struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *entity.Client) error {
	query := `
		INSERT INTO clients (name, phone, telegram_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, client.Name, client.Phone, client.TelegramID).
		Scan(&client.ID, &client.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return entity.ErrClientExists
		}
		return fmt.Errorf("failed to create client: %v", err)
	}

	return nil
}

func (r *clientRepository) GetByID(ctx context.Context, id int64) (*entity.Client, error) {
	query := `SELECT id, name, phone, telegram_id, created_at FROM clients WHERE id = $1`

	var c entity.Client
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.TelegramID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, entity.ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %v", err)
	}

	return &c, nil
}

func (r *clientRepository) GetByPhone(ctx context.Context, phone string) (*entity.Client, error) {
	query := `SELECT id, name, phone, telegram_id, created_at FROM clients WHERE phone = $1`

	var c entity.Client
	err := r.db.QueryRowContext(ctx, query, phone).
		Scan(&c.ID, &c.Name, &c.Phone, &c.TelegramID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, entity.ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client by phone: %v", err)
	}

	return &c, nil
}

type staffRepository struct {
	db *sql.DB
}

func NewStaffRepository(db *sql.DB) StaffRepository {
	return &staffRepository{db: db}
}

func (r *staffRepository) Create(ctx context.Context, staff *entity.Staff) error {
	query := `
		INSERT INTO staff (name, telegram_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, staff.Name, staff.TelegramID).
		Scan(&staff.ID, &staff.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create staff member: %v", err)
	}

	return nil
}

func (r *staffRepository) GetAll(ctx context.Context) ([]*entity.Staff, error) {
	query := `SELECT id, name, telegram_id, created_at FROM staff ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get staff: %v", err)
	}
	defer rows.Close()

	var staff []*entity.Staff
	for rows.Next() {
		var s entity.Staff
		if err := rows.Scan(&s.ID, &s.Name, &s.TelegramID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staff member: %v", err)
		}
		staff = append(staff, &s)
	}

	return staff, rows.Err()
}
