package transport

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/barberhub/booking-service/internal/entity"
	"github.com/barberhub/booking-service/internal/service"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService service.CatalogService
	availability   service.AvailabilityService
}

func NewCatalogHandler(catalogService service.CatalogService, availability service.AvailabilityService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		availability:   availability,
	}
}

func (h *CatalogHandler) GetServices(c *gin.Context) {
	services, err := h.catalogService.GetServices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"services": services})
}

func (h *CatalogHandler) GetBarbers(c *gin.Context) {
	barbers, err := h.catalogService.GetBarbers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"barbers": barbers})
}

// GetSlots возвращает свободные слоты мастера на дату.
// Длительность задается либо списком услуг, либо явно в минутах.
func (h *CatalogHandler) GetSlots(c *gin.Context) {
	barberID, err := parseID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid barber id"})
		return
	}

	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}

	duration, err := h.resolveDuration(c)
	if err != nil {
		respondError(c, err)
		return
	}

	slots, err := h.availability.AvailableSlots(c.Request.Context(), barberID, date, duration)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": date, "slots": slots})
}

func (h *CatalogHandler) RegisterClient(c *gin.Context) {
	var req service.RegisterClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client, err := h.catalogService.RegisterClient(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, client)
}

func (h *CatalogHandler) resolveDuration(c *gin.Context) (int, error) {
	if raw := c.Query("service_ids"); raw != "" {
		ids := make([]int64, 0)
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: malformed service_ids", entity.ErrInvalidInput)
			}
			ids = append(ids, id)
		}

		services, err := h.catalogService.GetServicesByIDs(c.Request.Context(), ids)
		if err != nil {
			return 0, err
		}

		total := 0
		for _, svc := range services {
			total += svc.DurationMinutes
		}
		return total, nil
	}

	duration, err := strconv.Atoi(c.DefaultQuery("duration", "60"))
	if err != nil || duration <= 0 {
		return 0, fmt.Errorf("%w: duration must be a positive number of minutes", entity.ErrInvalidInput)
	}
	return duration, nil
}
