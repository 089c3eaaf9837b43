package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code.cloudfoundry.org/clock"
	mongoadapter "github.com/Abdurahmanit/GroupProject/auction-service/internal/adapter/mongo"
	natsadapter "github.com/Abdurahmanit/GroupProject/auction-service/internal/adapter/nats"
	redisadapter "github.com/Abdurahmanit/GroupProject/auction-service/internal/adapter/redis"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/app/config"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/broadcast"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/port/ws"
	"github.com/Abdurahmanit/GroupProject/auction-service/internal/service"
	natsio "github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type App struct {
	cfg         *config.Config
	log         logger.Logger
	server      *http.Server
	hub         *ws.Hub
	dispatcher  *broadcast.Dispatcher
	scheduler   *service.Scheduler
	mongoClient *mongo.Client
	redisClient *goredis.Client
	natsConn    *natsio.Conn
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	appLogger, err := logger.NewZapLogger(logger.ZapLoggerConfig{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Infof("Configuration loaded: Env=%s, WS Port: %s", cfg.Env, cfg.WSServer.Port)

	appLogger.Info("Initializing MongoDB client...")
	mongoClient, err := mongoadapter.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}

	appLogger.Info("Initializing Redis client...")
	redisClient, err := redisadapter.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}

	appLogger.Info("Initializing NATS connection...")
	natsConn, err := natsadapter.NewConnection(cfg.NATS)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize NATS connection: %w", err)
	}
	msgPublisher, err := natsadapter.NewNATSPublisher(natsConn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize NATS publisher: %w", err)
	}

	itemRepo := mongoadapter.NewItemRepository(mongoClient, cfg.MongoDB)
	connRepo := redisadapter.NewConnectionRepository(redisClient)
	transport := redisadapter.NewTransport(redisClient)

	dispatcher, err := broadcast.NewDispatcher(transport, msgPublisher, cfg.Broadcast.QueueSize, cfg.Broadcast.Workers, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize broadcaster: %w", err)
	}

	clk := clock.NewClock()
	itemService := service.NewItemService(itemRepo, dispatcher, msgPublisher, clk, appLogger)
	bidService := service.NewBidService(itemRepo, dispatcher, clk, cfg.Auction.MinBidIncrement, cfg.Auction.MaxBidAttempts, appLogger)
	scheduler := service.NewScheduler(itemRepo, connRepo, dispatcher, clk, cfg.Scheduler.TickInterval, cfg.Scheduler.ConnectionTTL, appLogger)

	hub := ws.NewHub(transport, appLogger)
	handler := ws.NewHandler(hub, itemService, bidService, connRepo, dispatcher, appLogger)

	server := &http.Server{
		Addr:         ":" + cfg.WSServer.Port,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.WSServer.ReadTimeout,
		WriteTimeout: cfg.WSServer.WriteTimeout,
	}

	return &App{
		cfg:         cfg,
		log:         appLogger,
		server:      server,
		hub:         hub,
		dispatcher:  dispatcher,
		scheduler:   scheduler,
		mongoClient: mongoClient,
		redisClient: redisClient,
		natsConn:    natsConn,
	}, nil
}

func (a *App) Run() {
	a.log.Info("Starting application components...")

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	go a.scheduler.Run(schedulerCtx)

	a.hub.Start()

	go func() {
		a.log.Infof("Websocket server listening on :%s", a.cfg.WSServer.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Fatalf("Failed to start websocket server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	a.log.Infof("Received shutdown signal: %v. Shutting down application...", receivedSignal)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.WSServer.TimeoutGraceful+5*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Errorf("Error during websocket server shutdown: %v", err)
	}

	stopScheduler()
	a.hub.Stop()
	a.dispatcher.Stop()

	a.log.Info("Closing connections...")
	if a.natsConn != nil {
		a.natsConn.Close()
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(shutdownCtx); err != nil {
			a.log.Errorf("Error disconnecting from MongoDB: %v", err)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("Error closing Redis client: %v", err)
		}
	}

	a.log.Info("Application shut down successfully")
}
