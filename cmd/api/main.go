// @title           Stock Ledger API
// @version         1.0
// @description     Libro de inventario multi-bodega: entradas, salidas, traslados, ajustes y recepciones.
// @BasePath        /
// @securityDefinitions.apikey Bearer
// @in              header
// @name            Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/application/receipt"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/migrations"
	infrapdf "github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/stock-ledger/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	// Persistencia: PostgreSQL o memoria (desarrollo y demos).
	var (
		txRunner inventory.TxRunner
		repos    inventory.Repos
		userRepo repository.UserRepository
	)
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		txRunner, repos, userRepo = store, store.Repos(), store.Users()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		if cfg.Store.AutoMigrate {
			if err := runMigrations(cfg.DB.ConnectionString(), log); err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.DB, log)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		runner := postgres.NewTxRunner(pool)
		txRunner, repos, userRepo = runner, runner.Repos(), postgres.NewUserRepository(pool)
	}

	// Claves de idempotencia: Redis si está configurado, si no en memoria del proceso.
	var idempotency ports.IdempotencyStore
	if cfg.Redis.URL != "" {
		client, err := infraredis.Connect(ctx, cfg.Redis.URL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		store := infraredis.NewIdempotencyStore(client, cfg.Redis.KeyPrefix)
		defer store.Close()
		idempotency = store
	} else {
		idempotency = memory.NewIdempotencyStore()
	}

	retry := inventory.RetryPolicy{MaxAttempts: cfg.Ledger.MaxAttempts, Base: cfg.Ledger.RetryBase}
	ledgerUC := inventory.NewLedgerUseCase(txRunner, repos, retry, log.Component("ledger"))
	historyUC := inventory.NewHistoryUseCase(repos.Ledger, repos.Products)
	replenishmentUC := inventory.NewReplenishmentUseCase(repos.Products, repos.Ledger)

	// PDF: documento imprimible de la recepción
	pdfGenerator := infrapdf.NewMarotoPDFGenerator()
	receiptUC := receipt.NewUseCase(txRunner, repos, ledgerUC, pdfGenerator, retry, log.Component("receipt"))

	productUC := usecase.NewProductUseCase(repos.Products, txRunner)
	warehouseUC := usecase.NewWarehouseUseCase(repos.Warehouses, txRunner)
	locationUC := usecase.NewLocationUseCase(repos.Locations, repos.Warehouses)
	userUC := usecase.NewUserUseCase(userRepo)
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs (requiere `swag init -g cmd/api/main.go`)
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Stock Ledger API",
		}))
	} else {
		log.Warn().Str("file", swaggerFile).Msg("swagger no disponible, generar con swag init")
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Store.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:         authUC,
		UserUC:         userUC,
		ProductUC:      productUC,
		WarehouseUC:    warehouseUC,
		LocationUC:     locationUC,
		Ledger:         ledgerUC,
		History:        historyUC,
		Replenishment:  replenishmentUC,
		ReceiptUC:      receiptUC,
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.Ledger.IdempotencyTTL,
		JWTSecret:      cfg.JWT.Secret,
		Log:            log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func runMigrations(databaseURL string, log *logger.Logger) error {
	m, err := migrations.New(databaseURL, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}
