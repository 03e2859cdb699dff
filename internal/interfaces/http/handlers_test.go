package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/receipt"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture: API completa sobre el almacenamiento en memoria
// ──────────────────────────────────────────────────────────────────────────────

type apiFixture struct {
	t   *testing.T
	app *fiber.App
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	log := logger.Nop()
	store := memory.NewStore()
	repos := store.Repos()
	retry := inventory.RetryPolicy{MaxAttempts: 3, Base: time.Millisecond}

	ledger := inventory.NewLedgerUseCase(store, repos, retry, log)
	deps := apphttp.RouterDeps{
		AuthUC: auth.NewAuthUseCase(store.Users(), auth.JWTConfig{
			Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer,
		}),
		UserUC:         usecase.NewUserUseCase(store.Users()),
		ProductUC:      usecase.NewProductUseCase(repos.Products, store),
		WarehouseUC:    usecase.NewWarehouseUseCase(repos.Warehouses, store),
		LocationUC:     usecase.NewLocationUseCase(repos.Locations, repos.Warehouses),
		Ledger:         ledger,
		History:        inventory.NewHistoryUseCase(repos.Ledger, repos.Products),
		Replenishment:  inventory.NewReplenishmentUseCase(repos.Products, repos.Ledger),
		ReceiptUC:      receipt.NewUseCase(store, repos, ledger, pdf.NewMarotoPDFGenerator(), retry, log),
		Idempotency:    memory.NewIdempotencyStore(),
		IdempotencyTTL: time.Hour,
		JWTSecret:      testJWTSecret,
		Log:            log,
	}

	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler})
	apphttp.Router(app, deps)
	return &apiFixture{t: t, app: app}
}

// call envía la petición y decodifica la respuesta JSON en out (si no es nil).
func (f *apiFixture) call(method, path, token string, body interface{}, out interface{}, headers ...string) int {
	f.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(f.t, err)
		require.NoError(f.t, json.Unmarshal(raw, out), "respuesta: %s", string(raw))
	}
	return resp.StatusCode
}

// login registra un usuario con el rol indicado y devuelve su token.
func (f *apiFixture) login(email, role string) string {
	f.t.Helper()
	status := f.call(http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{
		Email: email, Password: "secreto-123", Role: role,
	}, nil)
	require.Equal(f.t, http.StatusCreated, status)

	var out dto.LoginResponse
	status = f.call(http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: email, Password: "secreto-123"}, &out)
	require.Equal(f.t, http.StatusOK, status)
	require.NotEmpty(f.t, out.Token)
	return out.Token
}

func (f *apiFixture) product(token, name string) string {
	f.t.Helper()
	var out dto.ProductResponse
	status := f.call(http.MethodPost, "/api/products", token, dto.CreateProductRequest{
		Name: name, SKU: name + "-SKU", CostPerUnit: decimal.NewFromInt(10),
	}, &out)
	require.Equal(f.t, http.StatusCreated, status)
	return out.ID
}

func (f *apiFixture) warehouse(token, name, code string) string {
	f.t.Helper()
	var out dto.WarehouseResponse
	status := f.call(http.MethodPost, "/api/warehouses", token, dto.CreateWarehouseRequest{Name: name, ShortCode: code}, &out)
	require.Equal(f.t, http.StatusCreated, status)
	return out.ID
}

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos de stock
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_EntradaSalidaYTraslado(t *testing.T) {
	f := newAPI(t)
	tok := f.login("admin@test.io", "admin")
	p := f.product(tok, "Tornillo")
	w1 := f.warehouse(tok, "Principal", "W1")
	w2 := f.warehouse(tok, "Secundaria", "W2")

	var res dto.MutationResponse
	status := f.call(http.MethodPost, "/api/stock/receive", tok, dto.ReceiveRequest{
		ProductID: p, WarehouseID: w1, Quantity: qty("100"),
	}, &res)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "RECEIPT", res.Entries[0].Type)
	require.NotNil(t, res.Product)
	assert.True(t, res.Product.OnHand.Equal(qty("100")))

	status = f.call(http.MethodPost, "/api/stock/deliver", tok, dto.DeliverRequest{
		ProductID: p, WarehouseID: w1, Quantity: qty("30"),
	}, &res)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, res.Entries[0].NewQuantity.Equal(qty("70")))

	status = f.call(http.MethodPost, "/api/stock/transfer", tok, dto.TransferRequest{
		ProductID: p, FromWarehouseID: w1, ToWarehouseID: w2, Quantity: qty("20"),
	}, &res)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, res.Entries, 2, "un traslado produce dos asientos enlazados")
	assert.Equal(t, res.Entries[0].TransactionID, res.Entries[1].TransactionID)

	var stock dto.ProductStockResponse
	status = f.call(http.MethodGet, "/api/products/"+p+"/stock", tok, nil, &stock)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, stock.Product.OnHand.Equal(qty("70")), "un traslado no cambia el total")
	byWarehouse := map[string]decimal.Decimal{}
	for _, l := range stock.Lines {
		byWarehouse[l.WarehouseID] = l.Quantity
	}
	assert.True(t, byWarehouse[w1].Equal(qty("50")))
	assert.True(t, byWarehouse[w2].Equal(qty("20")))

	var moves dto.MoveListResponse
	status = f.call(http.MethodGet, "/api/moves/product/"+p, tok, nil, &moves)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, moves.Items, 4)
}

func TestAPI_SalidaSinExistencias_Retorna409ConDetalle(t *testing.T) {
	f := newAPI(t)
	tok := f.login("ops@test.io", "operator")
	p := f.product(tok, "Tuerca")
	w := f.warehouse(tok, "Principal", "W1")

	require.Equal(t, http.StatusCreated, f.call(http.MethodPost, "/api/stock/receive", tok,
		dto.ReceiveRequest{ProductID: p, WarehouseID: w, Quantity: qty("5")}, nil))

	var out dto.ErrorResponse
	status := f.call(http.MethodPost, "/api/stock/deliver", tok,
		dto.DeliverRequest{ProductID: p, WarehouseID: w, Quantity: qty("8")}, &out)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", out.Code)
	assert.Equal(t, "8", out.Details["requested"])
	assert.Equal(t, "5", out.Details["available"])
	assert.Equal(t, p, out.Details["product_id"])
}

func TestAPI_TrasladoMismaBodega_Retorna400(t *testing.T) {
	f := newAPI(t)
	tok := f.login("admin@test.io", "admin")
	p := f.product(tok, "Arandela")
	w := f.warehouse(tok, "Principal", "W1")

	var out dto.ErrorResponse
	status := f.call(http.MethodPost, "/api/stock/transfer", tok, dto.TransferRequest{
		ProductID: p, FromWarehouseID: w, ToWarehouseID: w, Quantity: qty("1"),
	}, &out)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "SAME_WAREHOUSE", out.Code)
}

func TestAPI_CantidadNoPositiva_Retorna400(t *testing.T) {
	f := newAPI(t)
	tok := f.login("admin@test.io", "admin")
	p := f.product(tok, "Perno")
	w := f.warehouse(tok, "Principal", "W1")

	for _, q := range []string{"0", "-3"} {
		var out dto.ErrorResponse
		status := f.call(http.MethodPost, "/api/stock/receive", tok,
			dto.ReceiveRequest{ProductID: p, WarehouseID: w, Quantity: qty(q)}, &out)
		assert.Equal(t, http.StatusBadRequest, status, "cantidad %s", q)
		assert.Equal(t, "INVALID_QUANTITY", out.Code)
	}
}

func TestAPI_ProductoInexistente_Retorna404(t *testing.T) {
	f := newAPI(t)
	tok := f.login("admin@test.io", "admin")
	w := f.warehouse(tok, "Principal", "W1")

	var out dto.ErrorResponse
	status := f.call(http.MethodPost, "/api/stock/receive", tok,
		dto.ReceiveRequest{ProductID: "no-existe", WarehouseID: w, Quantity: qty("1")}, &out)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", out.Code)
}

func TestAPI_AjusteSinDiferencia_NoEscribe(t *testing.T) {
	f := newAPI(t)
	tok := f.login("admin@test.io", "admin")
	p := f.product(tok, "Clavo")
	w := f.warehouse(tok, "Principal", "W1")
	require.Equal(t, http.StatusCreated, f.call(http.MethodPost, "/api/stock/receive", tok,
		dto.ReceiveRequest{ProductID: p, WarehouseID: w, Quantity: qty("10")}, nil))

	var res dto.MutationResponse
	status := f.call(http.MethodPost, "/api/stock/adjust", tok,
		dto.AdjustRequest{ProductID: p, WarehouseID: w, CountedQuantity: qty("10")}, &res)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, res.Changed)
	assert.Empty(t, res.Entries)

	status = f.call(http.MethodPost, "/api/stock/adjust", tok,
		dto.AdjustRequest{ProductID: p, WarehouseID: w, CountedQuantity: qty("7")}, &res)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, res.Changed)
	require.Len(t, res.Entries, 1)
	assert.True(t, res.Entries[0].QuantityDelta.Equal(qty("-3")))
}

// ──────────────────────────────────────────────────────────────────────────────
// Idempotencia
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_IdempotencyKeyRepetida_Retorna409(t *testing.T) {
	f := newAPI(t)
	tok := f.login("admin@test.io", "admin")
	p := f.product(tok, "Bisagra")
	w := f.warehouse(tok, "Principal", "W1")
	body := dto.ReceiveRequest{ProductID: p, WarehouseID: w, Quantity: qty("4")}

	status := f.call(http.MethodPost, "/api/stock/receive", tok, body, nil, apphttp.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, status)

	var out dto.ErrorResponse
	status = f.call(http.MethodPost, "/api/stock/receive", tok, body, &out, apphttp.HeaderIdempotencyKey, "k-1")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_REQUEST", out.Code)

	var stock dto.ProductStockResponse
	require.Equal(t, http.StatusOK, f.call(http.MethodGet, "/api/products/"+p+"/stock", tok, nil, &stock))
	assert.True(t, stock.Product.OnHand.Equal(qty("4")), "la repetición no debe aplicarse")
}

func TestAPI_IdempotencyKeyLiberadaTrasFallo(t *testing.T) {
	f := newAPI(t)
	tok := f.login("admin@test.io", "admin")
	p := f.product(tok, "Cerrojo")
	w := f.warehouse(tok, "Principal", "W1")

	status := f.call(http.MethodPost, "/api/stock/deliver", tok,
		dto.DeliverRequest{ProductID: p, WarehouseID: w, Quantity: qty("1")}, nil, apphttp.HeaderIdempotencyKey, "k-2")
	require.Equal(t, http.StatusConflict, status)

	require.Equal(t, http.StatusCreated, f.call(http.MethodPost, "/api/stock/receive", tok,
		dto.ReceiveRequest{ProductID: p, WarehouseID: w, Quantity: qty("1")}, nil))

	status = f.call(http.MethodPost, "/api/stock/deliver", tok,
		dto.DeliverRequest{ProductID: p, WarehouseID: w, Quantity: qty("1")}, nil, apphttp.HeaderIdempotencyKey, "k-2")
	assert.Equal(t, http.StatusCreated, status, "una clave cuya petición falló se puede reintentar")
}

// ──────────────────────────────────────────────────────────────────────────────
// Recepciones
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_RecepcionValidadaAplicaEntradas(t *testing.T) {
	f := newAPI(t)
	tok := f.login("admin@test.io", "admin")
	p := f.product(tok, "Bisel")
	w := f.warehouse(tok, "Principal", "W1")

	var rc dto.ReceiptResponse
	status := f.call(http.MethodPost, "/api/receipts", tok, dto.CreateReceiptRequest{
		Supplier: "Proveedor S.A.", ToLocationID: w, Status: "READY",
		Items: []dto.ReceiptItemRequest{{ProductID: p, QuantityExpected: qty("12")}},
	}, &rc)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "WH/IN/0001", rc.Reference)
	assert.Equal(t, "READY", rc.Status)

	status = f.call(http.MethodPost, "/api/receipts/"+rc.ID+"/validate", tok, nil, &rc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "DONE", rc.Status)

	var stock dto.ProductStockResponse
	require.Equal(t, http.StatusOK, f.call(http.MethodGet, "/api/products/"+p+"/stock", tok, nil, &stock))
	assert.True(t, stock.Product.OnHand.Equal(qty("12")))

	var out dto.ErrorResponse
	status = f.call(http.MethodPost, "/api/receipts/"+rc.ID+"/validate", tok, nil, &out)
	assert.Equal(t, http.StatusConflict, status, "una recepción DONE no se valida dos veces")
	assert.Equal(t, "INVALID_STATE_TRANSITION", out.Code)

	status = f.call(http.MethodDelete, "/api/receipts/"+rc.ID, tok, nil, &out)
	assert.Equal(t, http.StatusConflict, status, "una recepción DONE no se elimina")
}

func TestAPI_RecepcionPDF(t *testing.T) {
	f := newAPI(t)
	tok := f.login("admin@test.io", "admin")
	p := f.product(tok, "Regleta")
	w := f.warehouse(tok, "Principal", "W1")

	var rc dto.ReceiptResponse
	require.Equal(t, http.StatusCreated, f.call(http.MethodPost, "/api/receipts", tok, dto.CreateReceiptRequest{
		Supplier: "Proveedor", ToLocationID: w,
		Items: []dto.ReceiptItemRequest{{ProductID: p, QuantityExpected: qty("3")}},
	}, &rc))

	req := httptest.NewRequest(http.MethodGet, "/api/receipts/"+rc.ID+"/pdf", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	raw, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}

// ──────────────────────────────────────────────────────────────────────────────
// Validación y autorización
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_BodyInvalido_Retorna400ConCampos(t *testing.T) {
	f := newAPI(t)
	tok := f.login("admin@test.io", "admin")

	var out dto.ErrorResponse
	status := f.call(http.MethodPost, "/api/warehouses", tok, map[string]string{"name": "Sin código"}, &out)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", out.Code)
	assert.Contains(t, out.Details, "short_code")
}

func TestAPI_OperadorNoPuedeEliminarProducto(t *testing.T) {
	f := newAPI(t)
	tok := f.login("ops@test.io", "operator")
	p := f.product(tok, "Grapa")

	var out dto.ErrorResponse
	status := f.call(http.MethodDelete, "/api/products/"+p, tok, nil, &out)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", out.Code)
}

func TestAPI_ProductoConStockNoSeElimina(t *testing.T) {
	f := newAPI(t)
	tok := f.login("admin@test.io", "admin")
	p := f.product(tok, "Remache")
	w := f.warehouse(tok, "Principal", "W1")
	require.Equal(t, http.StatusCreated, f.call(http.MethodPost, "/api/stock/receive", tok,
		dto.ReceiveRequest{ProductID: p, WarehouseID: w, Quantity: qty("2")}, nil))

	status := f.call(http.MethodDelete, "/api/products/"+p, tok, nil, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAPI_LoginCredencialesInvalidas_Retorna401(t *testing.T) {
	f := newAPI(t)
	f.login("admin@test.io", "admin")

	var out dto.ErrorResponse
	status := f.call(http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "admin@test.io", Password: "otra-clave"}, &out)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = f.call(http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "nadie@test.io", Password: "otra-clave"}, &out)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_RutaProtegidaSinToken_Retorna401(t *testing.T) {
	f := newAPI(t)
	status := f.call(http.MethodGet, "/api/products", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
