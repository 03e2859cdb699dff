// Package pdf genera el comprobante imprimible de una recepción de mercancía.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Referencia WH/IN + Estado │ Fecha programada       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ORIGEN: Proveedor / Desde        DESTINO: Bodega + Ubic.   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Producto | SKU | Esperado | Recibido | Unidad       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: líneas / unidades esperadas / recibidas           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR con la referencia + firmas                      │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var _ ports.ReceiptPDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa ports.ReceiptPDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// Generate genera el PDF de la recepción y devuelve sus bytes.
func (g *MarotoPDFGenerator) Generate(data ports.ReceiptPDFData) ([]byte, error) {
	rc := data.Receipt
	if rc == nil {
		return nil, fmt.Errorf("pdf: recepción vacía")
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Recepción "+rc.Reference, true).
		WithAuthor(nonEmpty(rc.Responsible, rc.CreatedBy), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(rc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(partiesRow(rc, data))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableItemRows(rc.Items, data.Products)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(rc.Items))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(rc)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: referencia + estado (izq) y fecha programada (der).
func headerRow(rc *entity.Receipt) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New("RECEPCIÓN DE MERCANCÍA", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(rc.Reference, props.Text{
				Style: fontstyle.Bold, Size: 13, Top: 6,
			}),
		),
		col.New(5).Add(
			text.New("Estado: "+rc.Status, props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("Programada: "+rc.ScheduleDate.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 8, Color: colorGray,
			}),
			text.New(validatedLabel(rc), props.Text{
				Size: 8, Align: align.Right, Top: 13, Color: colorGray,
			}),
		),
	)
}

func validatedLabel(rc *entity.Receipt) string {
	if rc.ValidatedAt == nil {
		return "Sin validar"
	}
	return fmt.Sprintf("Validada: %s por %s", rc.ValidatedAt.Format("02/01/2006 15:04"), nonEmpty(rc.ValidatedBy, "—"))
}

// partiesRow: proveedor/origen y bodega/ubicación de destino.
func partiesRow(rc *entity.Receipt, data ports.ReceiptPDFData) core.Row {
	return row.New(16).Add(
		col.New(6).Add(
			text.New("ORIGEN", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(rc.Supplier, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New("Desde: "+nonEmpty(rc.FromLocation, entity.DefaultFromLocation), props.Text{
				Size: 8, Top: 12, Color: colorGray,
			}),
		),
		col.New(6).Add(
			text.New("DESTINO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(data.ToWarehouse, "—"), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("Ubicación: %s   |   Responsable: %s",
				nonEmpty(data.ToLocation, rc.ToLocationID),
				nonEmpty(rc.Responsible, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Producto", 5, align.Left),
		h("SKU", 2, align.Left),
		h("Esperado", 2, align.Right),
		h("Recibido", 2, align.Right),
		h("Unidad", 1, align.Center),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// tableItemRows: una fila por línea de la recepción.
func tableItemRows(items []entity.ReceiptItem, products map[string]*entity.Product) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		name, sku, uom := it.ProductID, "", ""
		if p, ok := products[it.ProductID]; ok && p != nil {
			name, sku, uom = p.Name, p.SKU, p.UnitOfMeasure
		}
		result = append(result, row.New(7).Add(
			col.New(5).Add(text.New(name, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(nonEmpty(sku, "—"), props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatQty(it.QuantityExpected), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(formatQty(it.QuantityReceived), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(nonEmpty(uom, "—"), props.Text{Size: 8, Align: align.Center, Top: 1})),
		))
	}
	return result
}

// totalsRow: número de líneas y unidades esperadas/recibidas.
func totalsRow(items []entity.ReceiptItem) core.Row {
	expected, received := decimal.Zero, decimal.Zero
	for _, it := range items {
		expected = expected.Add(it.QuantityExpected)
		received = received.Add(it.QuantityReceived)
	}
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	return row.New(20).Add(
		col.New(6),
		col.New(3).Add(
			label("Líneas:"),
			label("Unidades esperadas:"),
			label("Unidades recibidas:"),
		),
		col.New(3).Add(
			value(fmt.Sprintf("%d", len(items))),
			value(formatQty(expected)),
			value(formatQty(received)),
		),
	)
}

// footerRows: QR con la referencia, nota y espacio para firmas.
func footerRows(rc *entity.Receipt) []core.Row {
	rows := []core.Row{
		row.New(40).Add(
			col.New(4).Add(code.NewQr(rc.Reference, props.Rect{Percent: 90, Center: true})),
			col.New(8).Add(
				text.New("Nota:", props.Text{Style: fontstyle.Bold, Size: 8, Top: 2, Left: 3}),
				text.New(nonEmpty(rc.Note, "—"), props.Text{Size: 8, Top: 7, Left: 3, Color: colorGray}),
			),
		),
		row.New(12),
	}
	rows = append(rows, row.New(8).Add(
		col.New(6).Add(text.New("______________________\nEntrega (proveedor)", props.Text{Size: 8, Align: align.Center})),
		col.New(6).Add(text.New("______________________\nRecibe (bodega)", props.Text{Size: 8, Align: align.Center})),
	))
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatQty muestra la cantidad sin ceros decimales sobrantes: 12.5000 → "12.5".
func formatQty(q decimal.Decimal) string {
	return q.Round(4).String()
}
