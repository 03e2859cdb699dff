package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RetryPolicy acota los reintentos ante domain.ErrConcurrencyConflict.
// Cualquier otro error es definitivo y se devuelve en el primer intento.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
}

// DefaultRetryPolicy tres intentos con backoff exponencial desde 20ms.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Base: 20 * time.Millisecond}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.Base
	exp.MaxInterval = 50 * p.Base
	if exp.MaxInterval <= 0 {
		exp.MaxInterval = time.Millisecond
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// Run ejecuta fn en una transacción de tx y la repite entera si hubo conflicto de concurrencia.
func (p RetryPolicy) Run(ctx context.Context, tx TxRunner, log *logger.Logger, op string, fn func(r Repos) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := tx.Run(ctx, fn)
		if err == nil || errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Dur("wait", wait).Msg("conflicto de concurrencia, reintentando")
	}
	return backoff.RetryNotify(operation, p.backOff(ctx), notify)
}
