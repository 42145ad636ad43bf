package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/fekuna/ronary-inventory-service/config"
	"github.com/fekuna/ronary-inventory-service/migrations"
	"github.com/fekuna/ronary-inventory-service/pkg/broker"
	"github.com/fekuna/ronary-inventory-service/pkg/cache"
	"github.com/fekuna/ronary-inventory-service/pkg/database"
	"github.com/fekuna/ronary-inventory-service/pkg/i18n"
	"github.com/fekuna/ronary-inventory-service/pkg/logger"
	"github.com/fekuna/ronary-inventory-service/pkg/middleware"

	dataH "github.com/fekuna/ronary-inventory-service/internal/dataport/handler"
	dataUCPkg "github.com/fekuna/ronary-inventory-service/internal/dataport/usecase"

	invH "github.com/fekuna/ronary-inventory-service/internal/inventory/handler"
	invListenerPkg "github.com/fekuna/ronary-inventory-service/internal/inventory/listener"
	invRepoPkg "github.com/fekuna/ronary-inventory-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/ronary-inventory-service/internal/inventory/usecase"

	locH "github.com/fekuna/ronary-inventory-service/internal/location/handler"
	locRepoPkg "github.com/fekuna/ronary-inventory-service/internal/location/repository"
	locUCPkg "github.com/fekuna/ronary-inventory-service/internal/location/usecase"

	"github.com/fekuna/ronary-inventory-service/internal/mastersync"
	syncFetcherPkg "github.com/fekuna/ronary-inventory-service/internal/mastersync/fetcher"
	syncH "github.com/fekuna/ronary-inventory-service/internal/mastersync/handler"
	syncRepoPkg "github.com/fekuna/ronary-inventory-service/internal/mastersync/repository"
	syncUCPkg "github.com/fekuna/ronary-inventory-service/internal/mastersync/usecase"

	prodH "github.com/fekuna/ronary-inventory-service/internal/product/handler"
	prodRepoPkg "github.com/fekuna/ronary-inventory-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/ronary-inventory-service/internal/product/usecase"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	appLogger := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     cfg.Server.AppEnv == "dev" || cfg.Server.AppEnv == "development",
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer appLogger.Sync()

	// 3. Initialize i18n
	translator, err := i18n.New(cfg.I18n.DefaultLang)
	if err != nil {
		appLogger.Fatal("Could not load messages", zap.Error(err))
	}
	for _, path := range cfg.I18n.ExtraFiles {
		if err := translator.Load(path); err != nil {
			appLogger.Warn("Could not load extra messages", zap.String("path", path), zap.Error(err))
		}
	}

	// 4. Connect to Database
	dsn := cfg.Database.DSN
	if dsn == "" {
		if cfg.Database.Driver == database.DriverPostgres {
			dsn = database.PostgresDSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User,
				cfg.Postgres.Password, cfg.Postgres.DBName, cfg.Postgres.SSLMode)
		} else {
			dsn = database.SQLiteDSN(cfg.Database.SQLitePath)
		}
	}
	db, err := database.Open(&database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             dsn,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db, migrations.FS); err != nil {
		appLogger.Fatal("Could not migrate database", zap.Error(err))
	}
	appLogger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	// 5. Initialize Redis
	var (
		locker cache.Locker = cache.NewLocalLocker()
		store  cache.Store
	)
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		locker, store = redisClient, redisClient
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		appLogger.Info("Redis disabled, using in-process locks")
	}

	// 6. Initialize Repositories
	locRepo := locRepoPkg.NewSQLRepository(db)
	prodRepo := prodRepoPkg.NewSQLRepository(db)
	invRepo := invRepoPkg.NewSQLRepository(db)
	syncRepo := syncRepoPkg.NewSQLRepository(db)

	// 7. Initialize UseCases
	locUC := locUCPkg.NewLocationUseCase(locRepo, cfg.Ledger.DefaultLocation, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, store, appLogger)
	invUC := invUCPkg.NewInventoryUseCase(invRepo, locker, invUCPkg.Options{
		DefaultLocation: cfg.Ledger.DefaultLocation,
		LockTTL:         cfg.Ledger.LockTTL,
		LockAttempts:    cfg.Ledger.LockAttempts,
		LockRetryWait:   cfg.Ledger.LockRetryWait,
	}, appLogger)
	dataUC := dataUCPkg.NewDataPortUseCase(prodUC, invUC, locUC, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := locUC.EnsureLocations(ctx, append(cfg.Ledger.Locations, cfg.Sheet.StockLocation)...); err != nil {
		appLogger.Fatal("Could not ensure locations", zap.Error(err))
	}

	policy, err := mastersync.ParsePolicy(cfg.Sheet.QuantityPolicy)
	if err != nil {
		appLogger.Fatal("Invalid sheet quantity policy", zap.Error(err))
	}
	sheetURL := cfg.Sheet.URL
	if sheetURL == "" && cfg.Sheet.SheetID != "" {
		sheetURL = syncFetcherPkg.SheetCSVURL(cfg.Sheet.SheetID, cfg.Sheet.Tab)
	}
	costURL := cfg.Sheet.CostURL
	if costURL == "" && cfg.Sheet.SheetID != "" && cfg.Sheet.CostTab != "" {
		costURL = syncFetcherPkg.SheetCSVURL(cfg.Sheet.SheetID, cfg.Sheet.CostTab)
	}
	syncUC := syncUCPkg.NewSyncUseCase(syncRepo, syncFetcherPkg.NewHTTPFetcher(cfg.Sheet.FetchTimeout), locUC, prodUC, syncUCPkg.Options{
		SheetURL:      sheetURL,
		CostURL:       costURL,
		Policy:        policy,
		StockLocation: cfg.Sheet.StockLocation,
	}, appLogger)

	// 8. Start Background Workers
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaConsumer := broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer kafkaConsumer.Close()
		appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

		go invListenerPkg.NewSalesListener(kafkaConsumer, invUC, appLogger).Start(ctx)
	}

	if cfg.Sheet.SheetEnabled() {
		if cfg.Sheet.SyncOnStart {
			go syncUC.Sync(ctx)
		}
		go mastersync.NewScheduler(syncUC, cfg.Sheet.SyncInterval, appLogger).Start(ctx)
	}

	// 9. Initialize Handlers
	locHandler := locH.NewLocationHandler(locUC, translator, appLogger)
	prodHandler := prodH.NewProductHandler(prodUC, translator, appLogger)
	invHandler := invH.NewInventoryHandler(invUC, translator, appLogger)
	syncHandler := syncH.NewSyncHandler(syncUC, translator, appLogger)
	dataHandler := dataH.NewDataHandler(dataUC, translator, appLogger)

	// 10. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(middleware.UnaryInterceptors(appLogger)...),
	)

	locHandler.Register(grpcServer)
	prodHandler.Register(grpcServer)
	invHandler.Register(grpcServer)
	syncHandler.Register(grpcServer)
	dataHandler.Register(grpcServer)

	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))

	// Graceful Shutdown
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}
