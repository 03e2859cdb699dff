package ports

import "github.com/jhoicas/stock-ledger/internal/domain/entity"

// ReceiptPDFData agrupa lo necesario para imprimir una recepción.
type ReceiptPDFData struct {
	Receipt     *entity.Receipt
	Products    map[string]*entity.Product
	ToLocation  string
	ToWarehouse string
}

// ReceiptPDFGenerator genera el documento PDF de una recepción.
type ReceiptPDFGenerator interface {
	Generate(data ReceiptPDFData) ([]byte, error)
}
