package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Errores de dominio. Todo error devuelto por el motor de inventario envuelve uno de estos
// sentinels, de modo que errors.Is(err, domain.ErrX) siempre funciona.
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrUserNotFound           = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists     = errors.New("el email ya está registrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrInvalidQuantity        = errors.New("cantidad inválida")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrSameWarehouse          = errors.New("bodega de origen y destino son la misma")
	ErrInvalidStateTransition = errors.New("transición de estado no permitida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrConcurrencyConflict    = errors.New("conflicto de concurrencia")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
)

// ErrDuplicateReference es la violación de unicidad sobre una referencia de documento.
var ErrDuplicateReference = fmt.Errorf("referencia duplicada: %w", ErrDuplicate)

// Error es un error tipado con el tipo (Kind) y los identificadores implicados,
// para que la capa HTTP pueda construir una respuesta con detalle.
type Error struct {
	Kind        error
	Op          string
	Resource    string
	ID          string
	ProductID   string
	WarehouseID string
	ReceiptID   string
	From        string
	To          string
	Requested   *decimal.Decimal
	Available   *decimal.Decimal
	Msg         string
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	switch {
	case e.Resource != "" && e.ID != "":
		fmt.Fprintf(&b, " (%s %s)", e.Resource, e.ID)
	case e.Resource != "":
		fmt.Fprintf(&b, " (%s)", e.Resource)
	}
	if e.ProductID != "" {
		fmt.Fprintf(&b, " producto=%s", e.ProductID)
	}
	if e.WarehouseID != "" {
		fmt.Fprintf(&b, " bodega=%s", e.WarehouseID)
	}
	if e.ReceiptID != "" {
		fmt.Fprintf(&b, " recepción=%s", e.ReceiptID)
	}
	if e.From != "" || e.To != "" {
		fmt.Fprintf(&b, " %s -> %s", e.From, e.To)
	}
	if e.Requested != nil && e.Available != nil {
		fmt.Fprintf(&b, " solicitado=%s disponible=%s", e.Requested.String(), e.Available.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Kind }

// Details devuelve los identificadores no vacíos, para respuestas de error estructuradas.
func (e *Error) Details() map[string]string {
	d := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			d[k] = v
		}
	}
	set("resource", e.Resource)
	set("id", e.ID)
	set("product_id", e.ProductID)
	set("warehouse_id", e.WarehouseID)
	set("receipt_id", e.ReceiptID)
	set("from", e.From)
	set("to", e.To)
	if e.Requested != nil {
		d["requested"] = e.Requested.String()
	}
	if e.Available != nil {
		d["available"] = e.Available.String()
	}
	return d
}

// AsError extrae el *Error tipado de una cadena de errores.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// NotFound construye un ErrNotFound para el recurso indicado.
func NotFound(resource, id string) error {
	return &Error{Kind: ErrNotFound, Resource: resource, ID: id}
}

// InvalidQuantity construye un ErrInvalidQuantity para la operación.
func InvalidQuantity(op, msg string) error {
	return &Error{Kind: ErrInvalidQuantity, Op: op, Msg: msg}
}

// InsufficientStock reporta cuánto se pidió y cuánto había en la línea.
func InsufficientStock(productID, warehouseID string, requested, available decimal.Decimal) error {
	return &Error{
		Kind:        ErrInsufficientStock,
		ProductID:   productID,
		WarehouseID: warehouseID,
		Requested:   &requested,
		Available:   &available,
	}
}

// SameWarehouse rechaza una transferencia cuyo origen y destino coinciden.
func SameWarehouse(warehouseID string) error {
	return &Error{Kind: ErrSameWarehouse, Op: "transfer", WarehouseID: warehouseID}
}

// InvalidTransition rechaza un cambio de estado no contemplado en la tabla de transiciones.
func InvalidTransition(receiptID, from, to string) error {
	return &Error{Kind: ErrInvalidStateTransition, ReceiptID: receiptID, From: from, To: to}
}

// Duplicate reporta una violación de unicidad sobre el campo indicado.
func Duplicate(resource, field string) error {
	return &Error{Kind: ErrDuplicate, Resource: resource, Msg: field}
}

// ConcurrencyConflict indica que otra transacción modificó la fila primero.
func ConcurrencyConflict(op string) error {
	return &Error{Kind: ErrConcurrencyConflict, Op: op}
}
