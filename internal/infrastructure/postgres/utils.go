package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Querier es lo común entre *pgxpool.Pool y pgx.Tx; los repositorios funcionan con ambos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SQLSTATE relevantes.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeInvalidTextRepr      = "22P02"
	codeNumericOutOfRange    = "22003"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// mapError traduce errores de PostgreSQL a errores de dominio. Los que no tienen
// equivalente se envuelven con op para conservar el contexto.
func mapError(op, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		field := constraintField(pgErr.ConstraintName, pgErr.TableName)
		if field == "reference" {
			return fmt.Errorf("%s: %w", op, domain.ErrDuplicateReference)
		}
		return domain.Duplicate(resource, field)
	case codeForeignKeyViolation:
		return &domain.Error{Kind: domain.ErrNotFound, Op: op, Resource: resource, ID: id, Msg: pgErr.ConstraintName}
	case codeInvalidTextRepr:
		// id con formato inválido (no UUID): para el cliente equivale a no encontrado
		return domain.NotFound(resource, id)
	case codeNumericOutOfRange:
		return domain.InvalidQuantity(op, "cantidad fuera de rango")
	case codeSerializationFailure, codeDeadlockDetected:
		return domain.ConcurrencyConflict(op)
	case codeCheckViolation:
		if pgErr.TableName == "stock_lines" {
			return &domain.Error{Kind: domain.ErrInsufficientStock, Op: op, Msg: pgErr.ConstraintName}
		}
		return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidInput, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// constraintField extrae el nombre de columna de "<tabla>_<campo>_key".
func constraintField(constraint, table string) string {
	field := strings.TrimSuffix(constraint, "_key")
	field = strings.TrimPrefix(field, table+"_")
	if field == "" {
		return constraint
	}
	return field
}

// notFoundOrNil convierte pgx.ErrNoRows en (nil, nil), convención de los Get.
func notFoundOrNil[T any](v *T, err error, op, resource, id string) (*T, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if pgCode(err) == codeInvalidTextRepr {
			return nil, nil
		}
		return nil, mapError(op, resource, id, err)
	}
	return v, nil
}

// validID evita enviar ids mal formados a columnas UUID: dentro de una transacción
// el error 22P02 la abortaría.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func emptyIfNull(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
