package ports

import (
	"context"
	"time"
)

// IdempotencyStore registra claves Idempotency-Key ya procesadas.
// Implementado por Redis (despliegues con varias instancias) y en memoria.
type IdempotencyStore interface {
	// Reserve marca la clave como usada. Devuelve false si ya existía.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release libera una clave reservada cuya petición falló, para permitir reintentos.
	Release(ctx context.Context, key string) error
}
