package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStore_ReservaUnaSolaVez(t *testing.T) {
	s := NewIdempotencyStore()
	ctx := context.Background()

	ok, err := s.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "la segunda reserva debe fallar")

	require.NoError(t, s.Release(ctx, "k1"))
	ok, err = s.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "tras liberar la clave se puede reservar de nuevo")
}

func TestIdempotencyStore_Expiracion(t *testing.T) {
	s := NewIdempotencyStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := s.Reserve(ctx, "k", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = s.Reserve(ctx, "k", time.Minute)
	assert.True(t, ok, "una clave vencida se puede reutilizar")
}
