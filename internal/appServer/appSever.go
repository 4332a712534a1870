package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/barberhub/booking-service/config"
	repository "github.com/barberhub/booking-service/internal/database/postgres"
	"github.com/barberhub/booking-service/internal/service"
	"github.com/barberhub/booking-service/internal/transport"
	"github.com/barberhub/booking-service/internal/worker"

	"github.com/barberhub/booking-service/pkg/clock"
	"github.com/barberhub/booking-service/pkg/postgres"
	"github.com/barberhub/booking-service/pkg/queue"
	"github.com/barberhub/booking-service/pkg/rabbitmq"
	"github.com/barberhub/booking-service/pkg/redis"
	"github.com/barberhub/booking-service/pkg/scheduler"
	"github.com/barberhub/booking-service/pkg/telegram"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	// Бизнес-время: "сегодня" и окна напоминаний считаются в этой таймзоне
	clk := clock.New(cfg.App.Timezone)

	// Initialize database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	bookingRepo := repository.NewBookingRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	barberRepo := repository.NewBarberRepository(db)
	clientRepo := repository.NewClientRepository(db)
	staffRepo := repository.NewStaffRepository(db)

	// Initialize Telegram bot
	var telegramBot *telegram.Bot
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		telegramBot = telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.SendTimeout)
		logrus.Info("Telegram bot initialized")
	} else {
		logrus.Warn("Telegram bot token not provided, notifications disabled")
	}

	var redisQueue queue.Queue
	var taskPublisher service.TaskPublisher
	var queueInspector transport.QueueInspector

	if cfg.Redis.URL != "" {
		redisConfig := queue.DefaultRedisQueueConfig()
		redisConfig.Addr = cfg.Redis.URL
		redisConfig.Password = cfg.Redis.Password
		redisConfig.DB = cfg.Redis.DB

		retryManager := queue.NewRetryManager(3, 5*time.Second)
		redisClient := redis.NewRedisClient(&cfg.Redis)
		defer redisClient.Close()
		dlqHandler := queue.NewDefaultDLQHandler(redisClient, "barbershop:dlq")

		rq, qerr := queue.NewRedisQueue(redisConfig, retryManager, dlqHandler)
		if qerr != nil {
			logrus.Errorf("Failed to initialize Redis queue: %v. Continuing without queue...", qerr)
		} else {
			logrus.Info("Redis queue initialized")
			redisQueue = rq
			queueInspector = rq
			taskPublisher = service.NewQueueAdapter(redisQueue)
		}
	}

	// Initialize event publisher
	var eventPublisher service.EventPublisher
	if cfg.RabbitMQ.Enabled && cfg.RabbitMQ.URL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			logrus.Errorf("Failed to initialize RabbitMQ publisher: %v. Continuing without events...", err)
		} else {
			defer publisher.Close()
			eventPublisher = publisher
			logrus.Info("RabbitMQ publisher initialized")
		}
	}

	// Initialize services
	availabilityService := service.NewAvailabilityService(
		bookingRepo, barberRepo, clk,
		cfg.Booking.DefaultWorkStart, cfg.Booking.DefaultWorkEnd, cfg.Booking.MinLeadMinutes)
	bookingService := service.NewBookingService(
		bookingRepo, serviceRepo, barberRepo, clientRepo,
		availabilityService, clk, taskPublisher, eventPublisher)
	catalogService := service.NewCatalogService(serviceRepo, barberRepo, clientRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize task handler if queue is available
	if redisQueue != nil && telegramBot != nil {
		taskHandler := worker.NewTaskHandler(bookingService, staffRepo, telegramBot, cfg.Telegram.SendTimeout)

		// Start queue consumer
		go func() {
			if err := redisQueue.Subscribe(ctx, taskHandler.HandleTask); err != nil {
				logrus.Errorf("Queue subscriber error: %v", err)
			}
		}()
		logrus.Info("Queue subscriber started")
	}

	// Initialize and start notification scheduler
	if telegramBot != nil {
		notifyWorker := worker.NewNotifyWorker(
			bookingRepo, clientRepo, barberRepo, serviceRepo, staffRepo,
			telegramBot, clk, cfg.Telegram.SendTimeout)

		notifyScheduler := scheduler.NewScheduler(notifyWorker, cfg.Notifier.Interval)
		go notifyScheduler.Start(ctx)
		logrus.Info("Notification scheduler started")
	} else {
		logrus.Warn("Notification scheduler disabled: no Telegram bot")
	}

	// Initialize handlers
	bookingHandler := transport.NewBookingHandler(bookingService, queueInspector)
	catalogHandler := transport.NewCatalogHandler(catalogService, availabilityService)

	// Setup HTTP server
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(bookingHandler, catalogHandler)); err != nil {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	if redisQueue != nil {
		if err := redisQueue.Close(); err != nil {
			logrus.Errorf("error occured on queue shutting down: %s", err.Error())
		}
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}
