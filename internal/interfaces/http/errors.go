package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// errorMapping traduce un tipo de error de dominio a status HTTP y código estable.
type errorMapping struct {
	kind    error
	status  int
	code    string
	message string
}

// El orden importa: ErrUserNotFound antes que ErrNotFound y ErrEmailAlreadyExists antes que ErrDuplicate.
var errorMappings = []errorMapping{
	{domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY", "la cantidad debe ser positiva y con máximo 4 decimales"},
	{domain.ErrSameWarehouse, fiber.StatusBadRequest, "SAME_WAREHOUSE", "la bodega de origen y destino no pueden ser la misma"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION", "datos inválidos"},
	{domain.ErrUserNotFound, fiber.StatusNotFound, "USER_NOT_FOUND", "usuario no encontrado"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "recurso no encontrado"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK", "stock insuficiente"},
	{domain.ErrInvalidStateTransition, fiber.StatusConflict, "INVALID_STATE_TRANSITION", "transición de estado no permitida"},
	{domain.ErrEmailAlreadyExists, fiber.StatusConflict, "EMAIL_EXISTS", "el email ya está registrado"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE", "el recurso ya existe"},
	{domain.ErrConcurrencyConflict, fiber.StatusServiceUnavailable, "CONCURRENCY_CONFLICT", "conflicto de concurrencia, reintente la operación"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED", "no autorizado"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN", "acceso denegado"},
}

// mapError devuelve status y cuerpo para err. Los errores desconocidos son 500.
func mapError(err error) (int, dto.ErrorResponse) {
	for _, m := range errorMappings {
		if errors.Is(err, m.kind) {
			resp := dto.ErrorResponse{Code: m.code, Message: m.message}
			if de, ok := domain.AsError(err); ok {
				resp.Message = de.Error()
				if d := de.Details(); len(d) > 0 {
					resp.Details = d
				}
			}
			return m.status, resp
		}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
}

// respondError escribe la respuesta de error correspondiente a err.
func respondError(c *fiber.Ctx, err error) error {
	status, body := mapError(err)
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

// ErrorHandler maneja los errores que escapan de los handlers (fiber.Error y pánicos recuperados).
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: "HTTP_ERROR", Message: fe.Message})
	}
	return respondError(c, err)
}
