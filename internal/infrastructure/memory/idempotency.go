package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore claves Idempotency-Key en un mapa con expiración.
// Sirve para una sola instancia y para los tests.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewIdempotencyStore construye el almacén vacío.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{entries: make(map[string]time.Time), now: time.Now}
}

// Reserve marca la clave; false si ya existía y no ha expirado.
func (s *IdempotencyStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.entries[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)
	s.purge(now)
	return true, nil
}

// Release borra la clave.
func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// purge elimina las claves vencidas; se llama con el mutex tomado.
func (s *IdempotencyStore) purge(now time.Time) {
	for k, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, k)
		}
	}
}
