package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/backend-kasir/internal/model"
)

// ReceiptLine is one printable line of the receipt.
type ReceiptLine struct {
	Name      string `json:"name"`
	Qty       int64  `json:"qty"`
	UnitPrice int64  `json:"unitPrice"`
	Total     int64  `json:"total"`
}

// Receipt is the printable projection of a sale.
type Receipt struct {
	Number        string        `json:"number"`
	Date          string        `json:"date"`
	StoreName     string        `json:"storeName,omitempty"`
	StoreAddress  string        `json:"storeAddress,omitempty"`
	StorePhone    string        `json:"storePhone,omitempty"`
	CustomerName  string        `json:"customerName"`
	Lines         []ReceiptLine `json:"lines"`
	Subtotal      int64         `json:"subtotal"`
	Tax           int64         `json:"tax"`
	Discount      int64         `json:"discount"`
	Total         int64         `json:"total"`
	PaymentMethod string        `json:"paymentMethod"`
	DueDate       string        `json:"dueDate,omitempty"`
	Footer        string        `json:"footer,omitempty"`
}

// receiptTimeLayout renders dates as dd/MM/yyyy HH:mm.
const receiptTimeLayout = "02/01/2006 15:04"

func (s *Service) buildReceipt(ctx context.Context, sale model.Sale, at time.Time) Receipt {
	var profile model.StoreProfile
	_ = s.tree.Get(ctx, model.ColSettings, "store", &profile)

	lines := make([]ReceiptLine, len(sale.Items))
	for i, item := range sale.Items {
		lines[i] = ReceiptLine{
			Name:      item.ProductName,
			Qty:       item.Quantity,
			UnitPrice: item.Price,
			Total:     item.Total,
		}
	}
	receipt := Receipt{
		Number:        fmt.Sprintf("INV-%d", sale.SaleDate),
		Date:          at.Format(receiptTimeLayout),
		StoreName:     profile.Name,
		StoreAddress:  profile.Address,
		StorePhone:    profile.Phone,
		CustomerName:  sale.CustomerName,
		Lines:         lines,
		Subtotal:      sale.Subtotal,
		Tax:           sale.Tax,
		Discount:      sale.Discount,
		Total:         sale.Total,
		PaymentMethod: sale.PaymentMethod,
		Footer:        profile.ReceiptFooter,
	}
	if sale.DueDate > 0 {
		receipt.DueDate = time.UnixMilli(sale.DueDate).Format("02/01/2006")
	}
	return receipt
}
