package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/application/receipt"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC         *auth.AuthUseCase
	UserUC         *usecase.UserUseCase
	ProductUC      *usecase.ProductUseCase
	WarehouseUC    *usecase.WarehouseUseCase
	LocationUC     *usecase.LocationUseCase
	Ledger         *inventory.LedgerUseCase
	History        *inventory.HistoryUseCase
	Replenishment  *inventory.ReplenishmentUseCase
	ReceiptUC      *receipt.UseCase
	Idempotency    ports.IdempotencyStore
	IdempotencyTTL time.Duration
	JWTSecret      string
	Log            *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC, deps.UserUC)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	writers := RequireRole(entity.RoleAdmin, entity.RoleManager, entity.RoleOperator)
	managers := RequireRole(entity.RoleAdmin, entity.RoleManager)
	idem := IdempotencyMiddleware(deps.Idempotency, deps.IdempotencyTTL, deps.Log.Component("idempotency"))

	// Perfil
	profile := protected.Group("/profile")
	profile.Get("/", authHandler.GetProfile)
	profile.Put("/", authHandler.UpdateProfile)
	profile.Put("/password", authHandler.ChangePassword)

	// Products
	productHandler := NewProductHandler(deps.ProductUC, deps.Ledger, deps.History, deps.Replenishment)
	products := protected.Group("/products")
	products.Get("/replenishment", productHandler.GetReplenishmentList)
	products.Post("/", writers, productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", writers, productHandler.Update)
	products.Delete("/:id", managers, productHandler.Delete)
	products.Get("/:id/stock", productHandler.GetStock)
	products.Get("/:id/history", productHandler.GetHistory)
	products.Post("/:id/reconcile", managers, productHandler.Reconcile)

	// Warehouses y locations
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC, deps.LocationUC)
	warehouses := protected.Group("/warehouses")
	warehouses.Post("/", writers, warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)
	warehouses.Put("/:id", writers, warehouseHandler.Update)
	warehouses.Delete("/:id", managers, warehouseHandler.Delete)

	locations := protected.Group("/locations")
	locations.Post("/", writers, warehouseHandler.CreateLocation)
	locations.Get("/", warehouseHandler.ListLocations)
	locations.Get("/:id", warehouseHandler.GetLocation)
	locations.Put("/:id", writers, warehouseHandler.UpdateLocation)
	locations.Delete("/:id", managers, warehouseHandler.DeleteLocation)

	// Stock: mutaciones con Idempotency-Key opcional
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.History)
	stock := protected.Group("/stock")
	stock.Get("/", inventoryHandler.ListStock)
	stock.Post("/receive", writers, idem, inventoryHandler.Receive)
	stock.Post("/deliver", writers, idem, inventoryHandler.Deliver)
	stock.Post("/transfer", writers, idem, inventoryHandler.Transfer)
	stock.Post("/adjust", writers, idem, inventoryHandler.Adjust)

	// Historial de movimientos
	moves := protected.Group("/moves")
	moves.Get("/", inventoryHandler.ListMoves)
	moves.Get("/statistics", inventoryHandler.MoveStats)
	moves.Get("/product/:productId", inventoryHandler.ListProductMoves)

	// Receipts
	receiptHandler := NewReceiptHandler(deps.ReceiptUC)
	receipts := protected.Group("/receipts")
	receipts.Get("/statistics", receiptHandler.Stats)
	receipts.Post("/", writers, receiptHandler.Create)
	receipts.Get("/", receiptHandler.List)
	receipts.Get("/:id", receiptHandler.GetByID)
	receipts.Put("/:id", writers, receiptHandler.Update)
	receipts.Delete("/:id", managers, receiptHandler.Delete)
	receipts.Post("/:id/validate", writers, receiptHandler.Validate)
	receipts.Post("/:id/cancel", writers, receiptHandler.Cancel)
	receipts.Get("/:id/pdf", receiptHandler.PDF)
}
