package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// HeaderIdempotencyKey cabecera opcional que identifica una mutación de stock.
const HeaderIdempotencyKey = "Idempotency-Key"

// IdempotencyMiddleware rechaza con 409 DUPLICATE_REQUEST una clave ya usada por el mismo
// usuario en la misma ruta. Si la petición falla la clave se libera para permitir el reintento.
// Sin cabecera la petición pasa sin control.
func IdempotencyMiddleware(store ports.IdempotencyStore, ttl time.Duration, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(HeaderIdempotencyKey)
		if key == "" {
			return c.Next()
		}
		if len(key) > 200 {
			return badRequest(c, "INVALID_IDEMPOTENCY_KEY", "Idempotency-Key demasiado larga")
		}
		scoped := GetUserID(c) + ":" + c.Path() + ":" + key

		ok, err := store.Reserve(c.UserContext(), scoped, ttl)
		if err != nil {
			log.Error().Err(err).Str("path", c.Path()).Msg("no se pudo reservar la clave de idempotencia")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "IDEMPOTENCY_UNAVAILABLE",
				Message: "no se pudo verificar la clave de idempotencia, intente más tarde",
			})
		}
		if !ok {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Code:    "DUPLICATE_REQUEST",
				Message: "la petición con esta Idempotency-Key ya fue procesada",
				Details: map[string]string{"idempotency_key": key},
			})
		}

		err = c.Next()
		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			if rerr := store.Release(c.UserContext(), scoped); rerr != nil {
				log.Warn().Err(rerr).Str("path", c.Path()).Msg("no se pudo liberar la clave de idempotencia")
			}
		}
		return err
	}
}
