package transport

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/barberhub/booking-service/internal/entity"
	"github.com/barberhub/booking-service/internal/service"
	"github.com/barberhub/booking-service/pkg/queue"

	"github.com/gin-gonic/gin"
)

// QueueInspector — админский доступ к очереди задач: размеры очередей
// и работа с DLQ.
type QueueInspector interface {
	GetQueueStats(ctx context.Context) (*queue.QueueStats, error)
	GetDLQStats(ctx context.Context) (*queue.DLQStats, error)
	GetFailedTasks(ctx context.Context, limit int) ([]*queue.FailedTask, error)
	RequeueFailedTask(ctx context.Context, taskID string) error
}

type BookingHandler struct {
	bookingService service.BookingService
	queueInspector QueueInspector
}

func NewBookingHandler(bookingService service.BookingService, queueInspector QueueInspector) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		queueInspector: queueInspector,
	}
}

// UpdateStatusRequest представляет запрос на смену статуса визита
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CommentRequest представляет запрос на добавление отзыва
type CommentRequest struct {
	Comment string `json:"comment" binding:"required,min=1,max=1000"`
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bookings, err := h.bookingService.CreateBooking(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"bookings": bookings})
}

func (h *BookingHandler) GetVisit(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	visit, err := h.bookingService.GetVisit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, visit)
}

func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bookings, err := h.bookingService.TransitionStatusByBookingID(
		c.Request.Context(), id, entity.BookingStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (h *BookingHandler) SetComment(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.bookingService.SetComment(c.Request.Context(), id, req.Comment); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment saved"})
}

func (h *BookingHandler) GetClientBookings(c *gin.Context) {
	clientID, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	bookings, err := h.bookingService.GetClientBookings(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (h *BookingHandler) GetAllBookings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var (
		bookings []*entity.Booking
		err      error
	)

	if statusParam := c.Query("status"); statusParam != "" {
		bookings, err = h.bookingService.GetBookingsByStatus(
			c.Request.Context(), entity.BookingStatus(statusParam), limit, offset)
	} else {
		bookings, err = h.bookingService.GetAllBookings(c.Request.Context(), limit, offset)
	}

	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"meta":     gin.H{"limit": limit, "offset": offset, "count": len(bookings)},
	})
}

// DeleteBooking удаляет визит целиком, со всеми строками группы
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	if err := h.bookingService.DeleteGroupByBookingID(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "booking deleted"})
}

func (h *BookingHandler) GetStats(c *gin.Context) {
	stats, err := h.bookingService.GetBookingStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetQueueStats показывает размеры очередей задач, включая DLQ
func (h *BookingHandler) GetQueueStats(c *gin.Context) {
	if h.queueInspector == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue is not configured"})
		return
	}

	stats, err := h.queueInspector.GetQueueStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	dlqStats, err := h.queueInspector.GetDLQStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"queue": stats, "dlq": dlqStats})
}

// GetFailedTasks показывает содержимое DLQ
func (h *BookingHandler) GetFailedTasks(c *gin.Context) {
	if h.queueInspector == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue is not configured"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	tasks, err := h.queueInspector.GetFailedTasks(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

// RequeueFailedTask возвращает задачу из DLQ в основную очередь
func (h *BookingHandler) RequeueFailedTask(c *gin.Context) {
	if h.queueInspector == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue is not configured"})
		return
	}

	taskID := c.Param("id")
	if err := h.queueInspector.RequeueFailedTask(c.Request.Context(), taskID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task requeued"})
}

func parseID(c *gin.Context, param string) (int64, error) {
	return strconv.ParseInt(c.Param(param), 10, 64)
}

// respondError переводит доменные ошибки в HTTP-статусы
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, entity.ErrBookingNotFound),
		errors.Is(err, entity.ErrServiceNotFound),
		errors.Is(err, entity.ErrBarberNotFound),
		errors.Is(err, entity.ErrClientNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrSlotTaken),
		errors.Is(err, entity.ErrInvalidTransition),
		errors.Is(err, entity.ErrClientExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrCommentNotAllowed),
		errors.Is(err, entity.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
