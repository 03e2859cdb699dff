package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.ProductRepository   = (*ProductRepo)(nil)
	_ repository.WarehouseRepository = (*WarehouseRepo)(nil)
	_ repository.LocationRepository  = (*LocationRepo)(nil)
	_ repository.UserRepository      = (*UserRepo)(nil)
)

// ProductRepo productos en memoria.
type ProductRepo struct{ v view }

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	return r.v.do(func(st *state) error {
		if err := productUnique(st, p); err != nil {
			return err
		}
		cp := *p
		st.products[p.ID] = &cp
		return nil
	})
}

func productUnique(st *state, p *entity.Product) error {
	for _, other := range st.products {
		if other.ID == p.ID {
			continue
		}
		if other.Name == p.Name {
			return domain.Duplicate("product", "name")
		}
		if p.SKU != "" && other.SKU == p.SKU {
			return domain.Duplicate("product", "sku")
		}
	}
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	return r.find(func(p *entity.Product) bool { return p.ID == id })
}

// GetForUpdate equivale a GetByID: dentro de Run la tx ya es exclusiva.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *ProductRepo) GetByName(_ context.Context, name string) (*entity.Product, error) {
	return r.find(func(p *entity.Product) bool { return p.Name == name })
}

func (r *ProductRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	if sku == "" {
		return nil, nil
	}
	return r.find(func(p *entity.Product) bool { return p.SKU == sku })
}

func (r *ProductRepo) find(match func(*entity.Product) bool) (*entity.Product, error) {
	var out *entity.Product
	err := r.v.do(func(st *state) error {
		for _, p := range st.products {
			if match(p) {
				cp := *p
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *ProductRepo) Update(_ context.Context, p *entity.Product) error {
	return r.v.do(func(st *state) error {
		cur, ok := st.products[p.ID]
		if !ok {
			return domain.NotFound("product", p.ID)
		}
		if err := productUnique(st, p); err != nil {
			return err
		}
		cp := *p
		// la proyección de stock solo la escribe UpdateStockTotals
		cp.OnHand = cur.OnHand
		cp.FreeToUse = cur.FreeToUse
		cp.ReservedQuantity = cur.ReservedQuantity
		st.products[p.ID] = &cp
		return nil
	})
}

func (r *ProductRepo) UpdateCost(_ context.Context, productID string, cost decimal.Decimal) error {
	return r.v.do(func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return domain.NotFound("product", productID)
		}
		p.CostPerUnit = cost
		return nil
	})
}

func (r *ProductRepo) UpdateStockTotals(_ context.Context, productID string, onHand, freeToUse decimal.Decimal) error {
	return r.v.do(func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return domain.NotFound("product", productID)
		}
		p.OnHand = onHand
		p.FreeToUse = freeToUse
		return nil
	})
}

func (r *ProductRepo) List(_ context.Context, f repository.ProductFilter) ([]*entity.Product, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []*entity.Product
	err := r.v.do(func(st *state) error {
		for _, p := range st.products {
			if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.SKU), search) {
				continue
			}
			cp := *p
			out = append(out, &cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, f.Limit, f.Offset), err
}

func (r *ProductRepo) ListBelowReorderLevel(_ context.Context) ([]*entity.Product, error) {
	var out []*entity.Product
	err := r.v.do(func(st *state) error {
		for _, p := range st.products {
			if p.ReorderLevel.IsPositive() && p.OnHand.LessThan(p.ReorderLevel) {
				cp := *p
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *ProductRepo) Delete(_ context.Context, id string) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return domain.NotFound("product", id)
		}
		delete(st.products, id)
		return nil
	})
}

// WarehouseRepo bodegas en memoria.
type WarehouseRepo struct{ v view }

func (r *WarehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	return r.v.do(func(st *state) error {
		if err := warehouseUnique(st, w); err != nil {
			return err
		}
		cp := *w
		st.warehouses[w.ID] = &cp
		return nil
	})
}

func warehouseUnique(st *state, w *entity.Warehouse) error {
	for _, other := range st.warehouses {
		if other.ID == w.ID {
			continue
		}
		if other.Name == w.Name {
			return domain.Duplicate("warehouse", "name")
		}
		if other.ShortCode == w.ShortCode {
			return domain.Duplicate("warehouse", "short_code")
		}
	}
	return nil
}

func (r *WarehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	return r.find(func(w *entity.Warehouse) bool { return w.ID == id })
}

func (r *WarehouseRepo) GetForShare(ctx context.Context, id string) (*entity.Warehouse, error) {
	return r.GetByID(ctx, id)
}

func (r *WarehouseRepo) GetForUpdate(ctx context.Context, id string) (*entity.Warehouse, error) {
	return r.GetByID(ctx, id)
}

func (r *WarehouseRepo) GetByName(_ context.Context, name string) (*entity.Warehouse, error) {
	return r.find(func(w *entity.Warehouse) bool { return w.Name == name })
}

func (r *WarehouseRepo) GetByShortCode(_ context.Context, code string) (*entity.Warehouse, error) {
	return r.find(func(w *entity.Warehouse) bool { return w.ShortCode == code })
}

func (r *WarehouseRepo) find(match func(*entity.Warehouse) bool) (*entity.Warehouse, error) {
	var out *entity.Warehouse
	err := r.v.do(func(st *state) error {
		for _, w := range st.warehouses {
			if match(w) {
				cp := *w
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *WarehouseRepo) Update(_ context.Context, w *entity.Warehouse) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.warehouses[w.ID]; !ok {
			return domain.NotFound("warehouse", w.ID)
		}
		if err := warehouseUnique(st, w); err != nil {
			return err
		}
		cp := *w
		st.warehouses[w.ID] = &cp
		return nil
	})
}

func (r *WarehouseRepo) List(_ context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	var out []*entity.Warehouse
	err := r.v.do(func(st *state) error {
		for _, w := range st.warehouses {
			cp := *w
			out = append(out, &cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), err
}

func (r *WarehouseRepo) Delete(_ context.Context, id string) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.warehouses[id]; !ok {
			return domain.NotFound("warehouse", id)
		}
		delete(st.warehouses, id)
		return nil
	})
}

// LocationRepo ubicaciones en memoria.
type LocationRepo struct{ v view }

func (r *LocationRepo) Create(_ context.Context, l *entity.Location) error {
	return r.v.do(func(st *state) error {
		if err := locationCheck(st, l); err != nil {
			return err
		}
		cp := *l
		st.locations[l.ID] = &cp
		return nil
	})
}

func locationCheck(st *state, l *entity.Location) error {
	if _, ok := st.warehouses[l.WarehouseID]; !ok {
		return domain.NotFound("warehouse", l.WarehouseID)
	}
	for _, other := range st.locations {
		if other.ID != l.ID && other.ShortCode == l.ShortCode {
			return domain.Duplicate("location", "short_code")
		}
	}
	return nil
}

func (r *LocationRepo) GetByID(_ context.Context, id string) (*entity.Location, error) {
	return r.find(func(l *entity.Location) bool { return l.ID == id })
}

func (r *LocationRepo) GetByShortCode(_ context.Context, code string) (*entity.Location, error) {
	return r.find(func(l *entity.Location) bool { return l.ShortCode == code })
}

func (r *LocationRepo) find(match func(*entity.Location) bool) (*entity.Location, error) {
	var out *entity.Location
	err := r.v.do(func(st *state) error {
		for _, l := range st.locations {
			if match(l) {
				cp := *l
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *LocationRepo) Update(_ context.Context, l *entity.Location) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.locations[l.ID]; !ok {
			return domain.NotFound("location", l.ID)
		}
		if err := locationCheck(st, l); err != nil {
			return err
		}
		cp := *l
		st.locations[l.ID] = &cp
		return nil
	})
}

func (r *LocationRepo) List(_ context.Context, warehouseID string, limit, offset int) ([]*entity.Location, error) {
	var out []*entity.Location
	err := r.v.do(func(st *state) error {
		for _, l := range st.locations {
			if warehouseID != "" && l.WarehouseID != warehouseID {
				continue
			}
			cp := *l
			out = append(out, &cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ShortCode < out[j].ShortCode })
	return page(out, limit, offset), err
}

func (r *LocationRepo) Delete(_ context.Context, id string) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.locations[id]; !ok {
			return domain.NotFound("location", id)
		}
		delete(st.locations, id)
		return nil
	})
}

// UserRepo usuarios en memoria.
type UserRepo struct{ v view }

func (r *UserRepo) Create(_ context.Context, u *entity.User) error {
	return r.v.do(func(st *state) error {
		for _, other := range st.users {
			if strings.EqualFold(other.Email, u.Email) {
				return domain.ErrEmailAlreadyExists
			}
		}
		cp := *u
		st.users[u.ID] = &cp
		return nil
	})
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	var out *entity.User
	err := r.v.do(func(st *state) error {
		if u, ok := st.users[id]; ok {
			cp := *u
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	var out *entity.User
	err := r.v.do(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				cp := *u
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *UserRepo) Update(_ context.Context, u *entity.User) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.users[u.ID]; !ok {
			return domain.ErrUserNotFound
		}
		for _, other := range st.users {
			if other.ID != u.ID && strings.EqualFold(other.Email, u.Email) {
				return domain.ErrEmailAlreadyExists
			}
		}
		cp := *u
		st.users[u.ID] = &cp
		return nil
	})
}
