package transport

import (
	"github.com/barberhub/booking-service/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

func InitRoutes(bookingHandler *BookingHandler, catalogHandler *CatalogHandler) *gin.Engine {

	router := gin.New()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(30))

	// API routes
	api := router.Group("/api/v1")
	{
		// Booking routes
		bookings := api.Group("/bookings")
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("/:id", bookingHandler.GetVisit)
			bookings.PATCH("/:id/status", bookingHandler.UpdateStatus)
			bookings.POST("/:id/comment", bookingHandler.SetComment)
		}

		// Catalog routes
		api.GET("/services", catalogHandler.GetServices)

		barbers := api.Group("/barbers")
		{
			barbers.GET("", catalogHandler.GetBarbers)
			barbers.GET("/:id/slots", catalogHandler.GetSlots)
		}

		// Client routes
		clients := api.Group("/clients")
		{
			clients.POST("/register", catalogHandler.RegisterClient)
			clients.GET("/:id/bookings", bookingHandler.GetClientBookings)
		}

		// Admin routes
		admin := api.Group("/admin")
		{
			admin.GET("/bookings", bookingHandler.GetAllBookings)
			admin.DELETE("/bookings/:id", bookingHandler.DeleteBooking)
			admin.GET("/stats", bookingHandler.GetStats)
			admin.GET("/queue", bookingHandler.GetQueueStats)
			admin.GET("/dlq", bookingHandler.GetFailedTasks)
			admin.POST("/dlq/:id/requeue", bookingHandler.RequeueFailedTask)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return router
}
