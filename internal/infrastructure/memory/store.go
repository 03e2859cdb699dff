// Package memory implementa los puertos de persistencia en memoria del proceso.
// Las transacciones se serializan con un único mutex y trabajan sobre una copia del
// estado que solo se publica al confirmar, así un error no deja escrituras parciales.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

type stockKey struct {
	productID   string
	warehouseID string
}

type state struct {
	products   map[string]*entity.Product
	warehouses map[string]*entity.Warehouse
	locations  map[string]*entity.Location
	stock      map[stockKey]*entity.StockLine
	ledger     []*entity.LedgerEntry
	receipts   map[string]*entity.Receipt
	sequences  map[string]int64
	users      map[string]*entity.User
	ledgerSeq  int64
}

func newState() *state {
	return &state{
		products:   map[string]*entity.Product{},
		warehouses: map[string]*entity.Warehouse{},
		locations:  map[string]*entity.Location{},
		stock:      map[stockKey]*entity.StockLine{},
		receipts:   map[string]*entity.Receipt{},
		sequences:  map[string]int64{},
		users:      map[string]*entity.User{},
	}
}

// clone copia el estado. Los asientos del libro son inmutables y se comparten.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		p := *v
		c.products[k] = &p
	}
	for k, v := range s.warehouses {
		w := *v
		c.warehouses[k] = &w
	}
	for k, v := range s.locations {
		l := *v
		c.locations[k] = &l
	}
	for k, v := range s.stock {
		line := *v
		c.stock[k] = &line
	}
	c.ledger = append(make([]*entity.LedgerEntry, 0, len(s.ledger)+4), s.ledger...)
	for k, v := range s.receipts {
		c.receipts[k] = copyReceipt(v)
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	for k, v := range s.users {
		u := *v
		c.users[k] = &u
	}
	c.ledgerSeq = s.ledgerSeq
	return c
}

// Store es el almacenamiento en memoria. Es seguro para uso concurrente.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// view resuelve sobre qué estado opera un repositorio: el de una tx en curso
// (ya protegido por el mutex) o el publicado (se bloquea por llamada).
type view struct {
	store *Store
	tx    *state
}

func (v view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

// Run ejecuta fn con repositorios atados a una copia del estado; la copia se publica solo si fn no falla.
func (s *Store) Run(ctx context.Context, fn func(r inventory.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.st.clone()
	if err := fn(reposFor(view{store: s, tx: tx})); err != nil {
		return err
	}
	s.st = tx
	return nil
}

// Repos devuelve repositorios fuera de transacción (lecturas y CRUD de catálogo).
func (s *Store) Repos() inventory.Repos {
	return reposFor(view{store: s})
}

// Users devuelve el repositorio de usuarios.
func (s *Store) Users() *UserRepo {
	return &UserRepo{v: view{store: s}}
}

func reposFor(v view) inventory.Repos {
	return inventory.Repos{
		Stock:      &StockRepo{v: v},
		Ledger:     &LedgerRepo{v: v},
		Products:   &ProductRepo{v: v},
		Warehouses: &WarehouseRepo{v: v},
		Locations:  &LocationRepo{v: v},
		Receipts:   &ReceiptRepo{v: v},
		Sequences:  &SequenceRepo{v: v},
	}
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
