// Package redis implementa el almacén de claves Idempotency-Key sobre Redis,
// compartido entre todas las instancias de la API.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// DefaultKeyPrefix prefijo de las claves cuando la configuración no define uno.
const DefaultKeyPrefix = "stock-ledger:idempotency:"

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore guarda las claves con SETNX + TTL.
type IdempotencyStore struct {
	client    *goredis.Client
	keyPrefix string
}

// Connect abre el cliente a partir de una URL redis:// y verifica la conexión con PING.
func Connect(ctx context.Context, url string, log *logger.Logger) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: url inválida: %w", err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("conexión a Redis establecida")
	return client, nil
}

// NewIdempotencyStore construye el almacén sobre un cliente existente.
func NewIdempotencyStore(client *goredis.Client, keyPrefix string) *IdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &IdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// Reserve marca la clave con SETNX; false si otra petición ya la usó.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: reservar clave de idempotencia: %w", err)
	}
	return ok, nil
}

// Release borra la clave para que el cliente pueda reintentar.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis: liberar clave de idempotencia: %w", err)
	}
	return nil
}

// Close cierra el cliente subyacente.
func (s *IdempotencyStore) Close() error {
	return s.client.Close()
}
