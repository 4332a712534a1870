package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/barberhub/booking-service/internal/entity"
	"github.com/barberhub/booking-service/internal/service"
	"github.com/barberhub/booking-service/pkg/queue"

	"github.com/sirupsen/logrus"
)

// TaskHandler обрабатывает задачи из очереди
type TaskHandler struct {
	bookingService VisitReader
	staffRepo      StaffDirectory
	notifier       service.Notifier
	sendTimeout    time.Duration
}

// VisitReader отдает карточку визита для текстов уведомлений
type VisitReader interface {
	GetVisit(ctx context.Context, bookingID int64) (*service.VisitDetails, error)
}

// StaffDirectory — список сотрудников для служебных уведомлений
type StaffDirectory interface {
	GetAll(ctx context.Context) ([]*entity.Staff, error)
}

// NewTaskHandler создает новый обработчик задач
func NewTaskHandler(
	bookingService VisitReader,
	staffRepo StaffDirectory,
	notifier service.Notifier,
	sendTimeout time.Duration,
) *TaskHandler {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &TaskHandler{
		bookingService: bookingService,
		staffRepo:      staffRepo,
		notifier:       notifier,
		sendTimeout:    sendTimeout,
	}
}

// HandleTask обрабатывает задачу
func (h *TaskHandler) HandleTask(task *queue.Task) error {
	logrus.Infof("Обработка задачи %s типа %s (попытка %d/%d)",
		task.ID, task.Type, task.Attempts, task.MaxRetries)

	switch task.Type {
	case queue.TaskTypeStatusNotification:
		return h.handleStatusNotification(task)
	case queue.TaskTypeCustomMessage:
		return h.handleCustomMessage(task)
	default:
		return fmt.Errorf("неизвестный тип задачи: %s", task.Type)
	}
}

// handleStatusNotification рассылает уведомление об изменении статуса визита
func (h *TaskHandler) handleStatusNotification(task *queue.Task) error {
	if h.notifier == nil {
		return nil
	}

	ctx := context.Background()

	bookingID := task.GetInt64("booking_id")
	if bookingID == 0 {
		return fmt.Errorf("неверный booking_id в данных задачи")
	}

	status := entity.BookingStatus(task.GetString("status"))
	if !status.Valid() {
		return fmt.Errorf("неверный status в данных задачи")
	}

	visit, err := h.bookingService.GetVisit(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("не удалось получить визит %d: %v", bookingID, err)
	}

	// К моменту доставки статус мог уйти дальше; уведомляем по факту
	if visit.Bookings[0].Status != status {
		logrus.Infof("Визит %d уже в статусе %s, уведомление о %s пропущено",
			bookingID, visit.Bookings[0].Status, status)
		return nil
	}

	if visit.Client.TelegramID != "" {
		if err := h.send(ctx, visit.Client.TelegramID, clientStatusMessage(visit, status)); err != nil {
			return fmt.Errorf("не удалось отправить уведомление клиенту: %v", err)
		}
	}

	if visit.Barber.TelegramID != "" {
		if err := h.send(ctx, visit.Barber.TelegramID, barberStatusMessage(visit, status)); err != nil {
			logrus.Errorf("Не удалось отправить уведомление мастеру %d: %v", visit.Barber.ID, err)
		}
	}

	if h.staffRepo != nil {
		staff, err := h.staffRepo.GetAll(ctx)
		if err != nil {
			logrus.Errorf("Не удалось получить список сотрудников: %v", err)
			return nil
		}
		for _, member := range staff {
			if member.TelegramID == "" {
				continue
			}
			if err := h.send(ctx, member.TelegramID, barberStatusMessage(visit, status)); err != nil {
				logrus.Errorf("Не удалось отправить уведомление сотруднику %d: %v", member.ID, err)
			}
		}
	}

	return nil
}

// handleCustomMessage отправляет произвольное сообщение получателю
func (h *TaskHandler) handleCustomMessage(task *queue.Task) error {
	if h.notifier == nil {
		return nil
	}

	chatID := task.GetString("chat_id")
	text := task.GetString("text")
	if chatID == "" || text == "" {
		return fmt.Errorf("неверные chat_id или text в данных задачи")
	}

	return h.send(context.Background(), chatID, text)
}

func (h *TaskHandler) send(ctx context.Context, chatID, text string) error {
	sendCtx, cancel := context.WithTimeout(ctx, h.sendTimeout)
	defer cancel()

	return h.notifier.Send(sendCtx, chatID, text)
}

// clientStatusMessage формирует текст уведомления для клиента
func clientStatusMessage(visit *service.VisitDetails, status entity.BookingStatus) string {
	var header, footer string
	switch status {
	case entity.BookingStatusPending:
		header = "📝 Заявка принята!"
		footer = "Мы сообщим вам, когда мастер подтвердит запись."
	case entity.BookingStatusApproved:
		header = "✅ Запись подтверждена!"
		footer = "Ждем вас! Если планы изменятся, пожалуйста, отмените запись заранее."
	case entity.BookingStatusRejected:
		header = "❌ Запись отклонена"
		footer = "К сожалению, мастер не сможет вас принять в это время. Выберите другой слот."
	case entity.BookingStatusCancelled:
		header = "❌ Запись отменена"
		footer = "Будем рады видеть вас в другой раз!"
	case entity.BookingStatusCompleted:
		header = "🎉 Спасибо за визит!"
		footer = "Будем благодарны за отзыв о работе мастера."
	}

	return fmt.Sprintf(
		"%s\n\n"+
			"Мастер: %s\n"+
			"Дата: %s в %s\n"+
			"Услуги: %s\n"+
			"Длительность: %d мин\n"+
			"Стоимость: %.0f ₽\n\n"+
			"%s",
		header,
		visit.Barber.Name,
		visit.Bookings[0].Date, visit.Bookings[0].Time,
		joinServiceNames(visit.Services),
		visit.DurationMinutes,
		visit.TotalPrice,
		footer,
	)
}

// barberStatusMessage формирует текст уведомления для мастера и персонала
func barberStatusMessage(visit *service.VisitDetails, status entity.BookingStatus) string {
	var header string
	switch status {
	case entity.BookingStatusPending:
		header = "📝 Новая заявка на запись"
	case entity.BookingStatusApproved:
		header = "✅ Запись подтверждена"
	case entity.BookingStatusRejected:
		header = "❌ Запись отклонена"
	case entity.BookingStatusCancelled:
		header = "❌ Клиент отменил запись"
	case entity.BookingStatusCompleted:
		header = "🎉 Визит завершен"
	}

	return fmt.Sprintf(
		"%s\n\n"+
			"Клиент: %s (%s)\n"+
			"Дата: %s в %s\n"+
			"Услуги: %s\n"+
			"Длительность: %d мин",
		header,
		visit.Client.Name, visit.Client.Phone,
		visit.Bookings[0].Date, visit.Bookings[0].Time,
		joinServiceNames(visit.Services),
		visit.DurationMinutes,
	)
}

func joinServiceNames(services []*entity.Service) string {
	names := make([]string, 0, len(services))
	for _, svc := range services {
		names = append(names, svc.Name)
	}
	return strings.Join(names, ", ")
}
