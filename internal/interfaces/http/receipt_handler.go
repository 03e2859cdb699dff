package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/receipt"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ReceiptHandler maneja el ciclo de vida de las recepciones (protegido).
type ReceiptHandler struct {
	uc *receipt.UseCase
}

// NewReceiptHandler construye el handler.
func NewReceiptHandler(uc *receipt.UseCase) *ReceiptHandler {
	return &ReceiptHandler{uc: uc}
}

func toItemInputs(items []dto.ReceiptItemRequest) []receipt.ItemInput {
	if items == nil {
		return nil
	}
	out := make([]receipt.ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, receipt.ItemInput{
			ProductID:        it.ProductID,
			QuantityExpected: it.QuantityExpected,
			QuantityReceived: it.QuantityReceived,
		})
	}
	return out
}

// Create godoc
// @Summary      Crear recepción
// @Description  Asigna la siguiente referencia WH/IN/NNNN. Estado inicial DRAFT o READY.
// @Tags         receipts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReceiptRequest  true  "Cabecera y líneas"
// @Success      201   {object}  dto.ReceiptResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/receipts [post]
func (h *ReceiptHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateReceiptRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	rc, err := h.uc.Create(c.UserContext(), GetUserID(c), receipt.CreateInput{
		Supplier:     in.Supplier,
		FromLocation: in.FromLocation,
		ToLocationID: in.ToLocationID,
		ScheduleDate: in.ScheduleDate,
		Responsible:  in.Responsible,
		Note:         in.Note,
		Status:       in.Status,
		Items:        toItemInputs(in.Items),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toReceiptResponse(rc))
}

// GetByID godoc
// @Summary      Obtener recepción
// @Tags         receipts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la recepción"
// @Success      200  {object}  dto.ReceiptResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/receipts/{id} [get]
func (h *ReceiptHandler) GetByID(c *fiber.Ctx) error {
	rc, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toReceiptResponse(rc))
}

// List godoc
// @Summary      Listar recepciones
// @Tags         receipts
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "DRAFT, WAITING, READY, DONE o CANCELLED"
// @Param        search  query  string  false  "Referencia o proveedor"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {object}  dto.ReceiptListResponse
// @Router       /api/receipts [get]
func (h *ReceiptHandler) List(c *fiber.Ctx) error {
	in := dto.ReceiptListRequest{Status: c.Query("status"), Search: c.Query("search"), PageRequest: parsePage(c)}
	if ok, err := checkQuery(c, &in); !ok {
		return err
	}
	in.DefaultPage()
	list, err := h.uc.List(c.UserContext(), repository.ReceiptFilter{
		Status: in.Status,
		Search: in.Search,
		Limit:  in.Limit,
		Offset: in.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	out := dto.ReceiptListResponse{
		Items: make([]dto.ReceiptResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: len(list)},
	}
	for _, rc := range list {
		out.Items = append(out.Items, toReceiptResponse(rc))
	}
	return c.JSON(out)
}

// Stats godoc
// @Summary      Contadores de recepciones
// @Description  pending = READY; late = READY con fecha programada vencida.
// @Tags         receipts
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ReceiptStatsResponse
// @Router       /api/receipts/statistics [get]
func (h *ReceiptHandler) Stats(c *fiber.Ctx) error {
	s, err := h.uc.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ReceiptStatsResponse{
		Total:     s.Total,
		Pending:   s.Pending,
		Done:      s.Done,
		Late:      s.Late,
		Cancelled: s.Cancelled,
	})
}

// Update godoc
// @Summary      Actualizar recepción
// @Description  Solo en DRAFT, WAITING o READY. status admite DRAFT, WAITING, READY o CANCELLED.
// @Tags         receipts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la recepción"
// @Param        body  body  dto.UpdateReceiptRequest  true  "Campos a cambiar"
// @Success      200   {object}  dto.ReceiptResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/receipts/{id} [put]
func (h *ReceiptHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateReceiptRequest
	if ok, err := parseBody(c, &in); !ok {
		return err
	}
	rc, err := h.uc.Update(c.UserContext(), c.Params("id"), receipt.UpdateInput{
		Supplier:     in.Supplier,
		FromLocation: in.FromLocation,
		ToLocationID: in.ToLocationID,
		ScheduleDate: in.ScheduleDate,
		Responsible:  in.Responsible,
		Note:         in.Note,
		Status:       in.Status,
		Items:        toItemInputs(in.Items),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toReceiptResponse(rc))
}

// Validate godoc
// @Summary      Validar recepción
// @Description  READY → DONE: aplica una entrada de stock por línea en una sola transacción.
// @Tags         receipts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la recepción"
// @Success      200  {object}  dto.ReceiptResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/receipts/{id}/validate [post]
func (h *ReceiptHandler) Validate(c *fiber.Ctx) error {
	rc, err := h.uc.Validate(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toReceiptResponse(rc))
}

// Cancel godoc
// @Summary      Cancelar recepción
// @Tags         receipts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la recepción"
// @Success      200  {object}  dto.ReceiptResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/receipts/{id}/cancel [post]
func (h *ReceiptHandler) Cancel(c *fiber.Ctx) error {
	rc, err := h.uc.Cancel(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toReceiptResponse(rc))
}

// Delete godoc
// @Summary      Eliminar recepción
// @Description  Rechazado con 409 para recepciones DONE.
// @Tags         receipts
// @Security     Bearer
// @Param        id   path  string  true  "ID de la recepción"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/receipts/{id} [delete]
func (h *ReceiptHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PDF godoc
// @Summary      Documento PDF de la recepción
// @Tags         receipts
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la recepción"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/receipts/{id}/pdf [get]
func (h *ReceiptHandler) PDF(c *fiber.Ctx) error {
	doc, err := h.uc.PDF(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="recepcion-`+c.Params("id")+`.pdf"`)
	return c.Send(doc)
}
