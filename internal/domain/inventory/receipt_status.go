package inventory

import (
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ReceiptReferencePrefix y la secuencia que alimenta las referencias de recepción.
const (
	ReceiptReferencePrefix = "WH/IN/"
	ReceiptSequence        = "receipt"
)

// FormatReceiptReference produce WH/IN/0001 a partir del contador atómico.
func FormatReceiptReference(n int64) string {
	return fmt.Sprintf("%s%04d", ReceiptReferencePrefix, n)
}

// Tabla de transiciones de una recepción. DONE y CANCELLED son terminales.
var receiptTransitions = map[string][]string{
	entity.ReceiptStatusDraft:   {entity.ReceiptStatusWaiting, entity.ReceiptStatusReady, entity.ReceiptStatusCancelled},
	entity.ReceiptStatusWaiting: {entity.ReceiptStatusDraft, entity.ReceiptStatusReady, entity.ReceiptStatusCancelled},
	entity.ReceiptStatusReady:   {entity.ReceiptStatusDraft, entity.ReceiptStatusWaiting, entity.ReceiptStatusDone, entity.ReceiptStatusCancelled},
}

// IsReceiptStatus indica si s es un estado conocido.
func IsReceiptStatus(s string) bool {
	switch s {
	case entity.ReceiptStatusDraft, entity.ReceiptStatusWaiting, entity.ReceiptStatusReady,
		entity.ReceiptStatusDone, entity.ReceiptStatusCancelled:
		return true
	}
	return false
}

// IsInitialReceiptStatus indica si s es válido al crear una recepción.
func IsInitialReceiptStatus(s string) bool {
	return s == entity.ReceiptStatusDraft || s == entity.ReceiptStatusReady
}

// IsEditableReceiptStatus indica si s es alcanzable mediante una edición (sin validar ni cancelar).
func IsEditableReceiptStatus(s string) bool {
	return s == entity.ReceiptStatusDraft || s == entity.ReceiptStatusWaiting || s == entity.ReceiptStatusReady
}

// CanTransition consulta la tabla de transiciones. Quedarse en el mismo estado no terminal es válido.
func CanTransition(from, to string) bool {
	if from == to {
		return IsEditableReceiptStatus(from)
	}
	for _, next := range receiptTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition devuelve ErrInvalidStateTransition si el cambio no está en la tabla.
func CheckTransition(receiptID, from, to string) error {
	if !CanTransition(from, to) {
		return domain.InvalidTransition(receiptID, from, to)
	}
	return nil
}

// CanDeleteReceipt: una recepción DONE es historial comprometido y no se borra.
func CanDeleteReceipt(status string) bool {
	return status != entity.ReceiptStatusDone
}
