package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// InventoryHandler maneja las mutaciones de stock y el historial de movimientos (protegido).
type InventoryHandler struct {
	ledger  *inventory.LedgerUseCase
	history *inventory.HistoryUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.LedgerUseCase, history *inventory.HistoryUseCase) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, history: history}
}

// Receive godoc
// @Summary      Registrar entrada de mercancía
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string              false  "Clave para evitar dobles envíos"
// @Param        body             body    dto.ReceiveRequest  true   "product_id, warehouse_id, quantity, unit_cost opcional"
// @Success      201   {object}  dto.MutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/receive [post]
func (h *InventoryHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	res, err := h.ledger.Receive(c.UserContext(), inventory.ReceiveInput{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Quantity:    in.Quantity,
		UnitCost:    in.UnitCost,
		Reference:   in.Reference,
		Note:        in.Note,
		ActorID:     GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMutationResponse(res))
}

// Deliver godoc
// @Summary      Registrar salida de mercancía
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string              false  "Clave para evitar dobles envíos"
// @Param        body             body    dto.DeliverRequest  true   "product_id, warehouse_id, quantity"
// @Success      201   {object}  dto.MutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/deliver [post]
func (h *InventoryHandler) Deliver(c *fiber.Ctx) error {
	var in dto.DeliverRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	res, err := h.ledger.Deliver(c.UserContext(), inventory.DeliverInput{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Quantity:    in.Quantity,
		Reference:   in.Reference,
		Note:        in.Note,
		ActorID:     GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMutationResponse(res))
}

// Transfer godoc
// @Summary      Trasladar stock entre bodegas
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string               false  "Clave para evitar dobles envíos"
// @Param        body             body    dto.TransferRequest  true   "product_id, from_warehouse_id, to_warehouse_id, quantity"
// @Success      201   {object}  dto.MutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/transfer [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	res, err := h.ledger.Transfer(c.UserContext(), inventory.TransferInput{
		ProductID:       in.ProductID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Quantity:        in.Quantity,
		Reference:       in.Reference,
		Note:            in.Note,
		ActorID:         GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMutationResponse(res))
}

// Adjust godoc
// @Summary      Ajustar stock a un conteo físico
// @Description  Si el conteo coincide con lo registrado no se escribe nada y changed=false.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string             false  "Clave para evitar dobles envíos"
// @Param        body             body    dto.AdjustRequest  true   "product_id, warehouse_id, counted_quantity"
// @Success      200   {object}  dto.MutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	res, err := h.ledger.Adjust(c.UserContext(), inventory.AdjustInput{
		ProductID:       in.ProductID,
		WarehouseID:     in.WarehouseID,
		CountedQuantity: in.CountedQuantity,
		Reference:       in.Reference,
		Note:            in.Note,
		ActorID:         GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toMutationResponse(res))
}

// ListStock godoc
// @Summary      Listar líneas de stock
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  false  "Filtrar por producto"
// @Param        warehouse_id  query  string  false  "Filtrar por bodega"
// @Param        limit         query  int     false  "Límite"
// @Param        offset        query  int     false  "Offset"
// @Success      200  {object}  dto.StockListResponse
// @Router       /api/stock [get]
func (h *InventoryHandler) ListStock(c *fiber.Ctx) error {
	page := parsePage(c)
	if ok, err := checkQuery(c, &page); !ok {
		return err
	}
	lines, err := h.ledger.ListStock(c.UserContext(), repository.StockFilter{
		ProductID:   c.Query("product_id"),
		WarehouseID: c.Query("warehouse_id"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.StockListResponse{
		Items: toStockLineViews(lines),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(lines)},
	})
}

// ListMoves godoc
// @Summary      Historial de movimientos
// @Tags         moves
// @Security     Bearer
// @Produce      json
// @Param        type          query  string  false  "RECEIPT, DELIVERY, TRANSFER o ADJUSTMENT"
// @Param        product_id    query  string  false  "Filtrar por producto"
// @Param        warehouse_id  query  string  false  "Filtrar por bodega"
// @Param        search        query  string  false  "Subcadena de la referencia"
// @Param        from          query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to            query  string  false  "Hasta (YYYY-MM-DD, inclusive)"
// @Param        limit         query  int     false  "Límite (máx 500)"
// @Param        offset        query  int     false  "Offset"
// @Success      200  {object}  dto.MoveListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/moves [get]
func (h *InventoryHandler) ListMoves(c *fiber.Ctx) error {
	in := dto.MoveListRequest{
		Type:        c.Query("type"),
		ProductID:   c.Query("product_id"),
		WarehouseID: c.Query("warehouse_id"),
		Search:      c.Query("search"),
		From:        c.Query("from"),
		To:          c.Query("to"),
		PageRequest: parsePage(c),
	}
	if ok, err := checkQuery(c, &in); !ok {
		return err
	}
	filter := repository.LedgerFilter{
		Type:        in.Type,
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Search:      in.Search,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	// El validador ya garantizó el formato de las fechas.
	if in.From != "" {
		from, _ := time.Parse(time.DateOnly, in.From)
		filter.From = &from
	}
	if in.To != "" {
		to, _ := time.Parse(time.DateOnly, in.To)
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &to
	}
	entries, err := h.history.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MoveListResponse{
		Items: toLedgerEntryResponses(entries),
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: len(entries)},
	})
}

// ListProductMoves godoc
// @Summary      Historial de movimientos de un producto
// @Tags         moves
// @Security     Bearer
// @Produce      json
// @Param        productId  path   string  true   "ID del producto"
// @Param        limit      query  int     false  "Límite (máx 500)"
// @Param        offset     query  int     false  "Offset"
// @Success      200  {object}  dto.MoveListResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/moves/product/{productId} [get]
func (h *InventoryHandler) ListProductMoves(c *fiber.Ctx) error {
	page := parsePage(c)
	if ok, err := checkQuery(c, &page); !ok {
		return err
	}
	entries, err := h.history.ListByProduct(c.UserContext(), c.Params("productId"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MoveListResponse{
		Items: toLedgerEntryResponses(entries),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(entries)},
	})
}

// MoveStats godoc
// @Summary      Estadísticas de movimientos
// @Tags         moves
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.MoveStatsResponse
// @Router       /api/moves/statistics [get]
func (h *InventoryHandler) MoveStats(c *fiber.Ctx) error {
	stats, err := h.history.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MoveStatsResponse{
		Total:  stats.Total,
		ByType: stats.ByType,
		Recent: toLedgerEntryResponses(stats.Recent),
	})
}
