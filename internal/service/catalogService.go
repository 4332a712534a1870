package service

import (
	"context"
	"fmt"

	repository "github.com/barberhub/booking-service/internal/database/postgres"
	"github.com/barberhub/booking-service/internal/entity"

	"github.com/sirupsen/logrus"
)

type catalogService struct {
	serviceRepo repository.ServiceRepository
	barberRepo  repository.BarberRepository
	clientRepo  repository.ClientRepository
}

// NewCatalogService создает новый экземпляр CatalogService
func NewCatalogService(
	serviceRepo repository.ServiceRepository,
	barberRepo repository.BarberRepository,
	clientRepo repository.ClientRepository,
) CatalogService {
	return &catalogService{
		serviceRepo: serviceRepo,
		barberRepo:  barberRepo,
		clientRepo:  clientRepo,
	}
}

// GetServices возвращает список всех услуг
func (s *catalogService) GetServices(ctx context.Context) ([]*entity.Service, error) {
	services, err := s.serviceRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении списка услуг: %w", err)
	}
	return services, nil
}

// GetServicesByIDs возвращает услуги по списку идентификаторов
func (s *catalogService) GetServicesByIDs(ctx context.Context, ids []int64) ([]*entity.Service, error) {
	return s.serviceRepo.GetByIDs(ctx, ids)
}

// GetBarbers возвращает список всех мастеров
func (s *catalogService) GetBarbers(ctx context.Context) ([]*entity.Barber, error) {
	barbers, err := s.barberRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении списка мастеров: %w", err)
	}
	return barbers, nil
}

// RegisterClient регистрирует нового клиента. Телефон уникален.
func (s *catalogService) RegisterClient(ctx context.Context, req *RegisterClientRequest) (*entity.Client, error) {
	client := &entity.Client{
		Name:       req.Name,
		Phone:      req.Phone,
		TelegramID: req.TelegramID,
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}

	logrus.Infof("Зарегистрирован клиент %d (%s)", client.ID, client.Phone)

	return client, nil
}
