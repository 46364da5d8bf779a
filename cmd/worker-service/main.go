package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/docuvoice/backend/internal/clients"
	"github.com/docuvoice/backend/internal/config"
	"github.com/docuvoice/backend/internal/ledger"
	"github.com/docuvoice/backend/internal/worker"
	"github.com/docuvoice/backend/internal/workflow"
	"github.com/docuvoice/backend/shared/awsx"
	"github.com/docuvoice/backend/shared/logger"
	"github.com/docuvoice/backend/shared/postgresql"
	"github.com/docuvoice/backend/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	workerID := fmt.Sprintf("worker-%s", uuid.New().String()[:8])

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("worker_id", workerID),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// Initialize AWS service clients
	awsCfg, err := awsx.Load(context.Background(), cfg.AWS.Region, cfg.AWS.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to initialize AWS clients: %w", err)
	}

	store := clients.NewS3Store(awsCfg)
	ocr := clients.NewTextractOCR(awsCfg, cfg.AWS.Textract.RoleARN, cfg.AWS.Textract.TopicARN)
	speech := clients.NewPollySpeech(awsCfg, cfg.AWS.Polly.TopicARN, cfg.AWS.Polly.Voice)
	notifier := clients.NewWebSocketNotifier(awsCfg, cfg.AWS.WebSocketEndpoint)
	jobLedger := ledger.NewStore(dbClient.GetDB(), appLogger.Logger)

	engine := workflow.NewEngine(&workflow.Config{
		Logger:             appLogger.Logger,
		OCR:                ocr,
		Store:              store,
		Speech:             speech,
		Notifier:           notifier,
		Ledger:             jobLedger,
		Bucket:             cfg.AWS.UploadBucket,
		Denylist:           cfg.Workflow.Denylist,
		SpeechUpdatePolicy: ledger.UpdatePolicy(cfg.Workflow.SpeechUpdatePolicy),
	})

	routers := worker.NewRouters(&worker.RoutersConfig{
		Logger:             appLogger.Logger,
		Ledger:             jobLedger,
		Publisher:          rabbitClient,
		Notifier:           notifier,
		Runner:             engine,
		WorkflowRoutingKey: cfg.RabbitMQ.Queues.Workflow.RoutingKey,
	})

	w := worker.NewWorker(&worker.Config{
		Logger:       appLogger.Logger,
		RabbitClient: rabbitClient,
		Handlers: map[string]worker.Handler{
			cfg.RabbitMQ.Queues.Workflow.Name:          routers.HandleWorkflowRun,
			cfg.RabbitMQ.Queues.OcrCompletions.Name:    routers.HandleOcrCompletion,
			cfg.RabbitMQ.Queues.SpeechCompletions.Name: routers.HandleSpeechCompletion,
		},
		Concurrency:   cfg.Worker.Concurrency,
		JobTimeout:    cfg.Worker.JobTimeout,
		PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
		WorkerID:      workerID,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx)
	}()

	appLogger.Info("Worker service is running")

	// Wait for interrupt signal or worker failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received shutdown signal",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		if err != nil {
			appLogger.Error("Worker failed",
				slog.Any("error", err),
			)
			return err
		}
	}

	appLogger.Info("Shutting down worker...")

	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(cfg.Worker.ShutdownTimeout):
		appLogger.Warn("Worker shutdown timed out")
	}

	if dbClient != nil {
		dbClient.Close()
	}
	if rabbitClient != nil {
		rabbitClient.Close()
	}

	appLogger.Info("Worker shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client with the pipeline queues
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	queues := []config.QueueConfig{
		cfg.Queues.Workflow,
		cfg.Queues.OcrCompletions,
		cfg.Queues.SpeechCompletions,
	}

	bindings := make([]rabbitmq.QueueBinding, 0, len(queues))
	for _, q := range queues {
		bindings = append(bindings, rabbitmq.QueueBinding{
			Name:       q.Name,
			RoutingKey: q.RoutingKey,
			Durable:    q.Durable,
			AutoDelete: q.AutoDelete,
		})
	}

	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		Queues:             bindings,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
