package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
)

// ProductHandler maneja las peticiones HTTP para Product (protegido).
type ProductHandler struct {
	uc            *usecase.ProductUseCase
	ledger        *inventory.LedgerUseCase
	history       *inventory.HistoryUseCase
	replenishment *inventory.ReplenishmentUseCase
}

// NewProductHandler construye el handler.
func NewProductHandler(
	uc *usecase.ProductUseCase,
	ledger *inventory.LedgerUseCase,
	history *inventory.HistoryUseCase,
	replenishment *inventory.ReplenishmentUseCase,
) *ProductHandler {
	return &ProductHandler{uc: uc, ledger: ledger, history: history, replenishment: replenishment}
}

// Create godoc
// @Summary      Crear producto
// @Description  El stock nace en cero; on_hand y free_to_use solo cambian vía movimientos.
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateProductRequest  true  "Datos del producto"
// @Success      201   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.uc.Create(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener producto por ID
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar productos
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        search    query  string  false  "Nombre o SKU"
// @Param        category  query  string  false  "Categoría"
// @Param        limit     query  int     false  "Límite"   default(20)
// @Param        offset    query  int     false  "Offset"   default(0)
// @Success      200       {object}  dto.ProductListResponse
// @Router       /api/products [get]
func (h *ProductHandler) List(c *fiber.Ctx) error {
	in := dto.ProductListRequest{Search: c.Query("search"), Category: c.Query("category"), PageRequest: parsePage(c)}
	if ok, err := checkQuery(c, &in); !ok {
		return err
	}
	out, err := h.uc.List(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar producto
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del producto"
// @Param        body  body  dto.UpdateProductRequest  true  "Datos a actualizar"
// @Success      200   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/products/{id} [put]
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateProductRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	out, err := h.uc.Update(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar producto
// @Description  Rechazado con 409 mientras alguna bodega tenga existencias del producto.
// @Tags         products
// @Security     Bearer
// @Param        id   path  string  true  "ID del producto"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetStock godoc
// @Summary      Stock del producto por bodega
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductStockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id}/stock [get]
func (h *ProductHandler) GetStock(c *fiber.Ctx) error {
	ps, err := h.ledger.GetProductStock(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ProductStockResponse{
		Product: *usecase.ToProductResponse(ps.Product),
		Lines:   toStockLineViews(ps.Lines),
	})
}

// GetHistory godoc
// @Summary      Historial de movimientos del producto
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del producto"
// @Param        limit   query  int     false  "Límite (máx 500)"
// @Param        offset  query  int     false  "Offset"
// @Success      200     {object}  dto.MoveListResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/products/{id}/history [get]
func (h *ProductHandler) GetHistory(c *fiber.Ctx) error {
	page := parsePage(c)
	if ok, err := checkQuery(c, &page); !ok {
		return err
	}
	entries, err := h.history.ListByProduct(c.UserContext(), c.Params("id"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MoveListResponse{
		Items: toLedgerEntryResponses(entries),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(entries)},
	})
}

// Reconcile godoc
// @Summary      Recalcular on_hand y free_to_use desde las líneas de stock
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id}/reconcile [post]
func (h *ProductHandler) Reconcile(c *fiber.Ctx) error {
	p, err := h.ledger.ReconcileProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(usecase.ToProductResponse(p))
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición
// @Description  Productos con on_hand por debajo del nivel de reorden y la cantidad sugerida
//
//	de pedido, ordenados por salidas de los últimos 90 días.
//
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/products/replenishment [get]
func (h *ProductHandler) GetReplenishmentList(c *fiber.Ctx) error {
	list, err := h.replenishment.GenerateReplenishmentList(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.ReplenishmentSuggestionDTO, 0, len(list))
	for _, s := range list {
		out = append(out, toReplenishmentDTO(s))
	}
	return c.JSON(fiber.Map{
		"total":          len(out),
		"replenishments": out,
	})
}
