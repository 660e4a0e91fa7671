// Package model defines the document shapes persisted in the tree store.
// All monetary amounts are in rupiah (minor units, int64) and all timestamps
// are unix milliseconds, matching the wire format of the store.
package model

// Collection names used as top-level tree paths.
const (
	ColProducts       = "products"
	ColCategories     = "categories"
	ColCustomers      = "customers"
	ColSuppliers      = "suppliers"
	ColPurchaseOrders = "purchaseOrders"
	ColSales          = "sales"
	ColSettings       = "settings"
	ColEvents         = "events"
	ColBackups        = "backups"
)

// Payment methods accepted at checkout.
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
	PaymentCredit   = "credit"
)

// Payment status for sales. Non-credit sales are recorded as paid immediately;
// credit sales start unpaid and may transition to paid exactly once.
const (
	StatusPaid   = "paid"
	StatusUnpaid = "unpaid"
)

// Purchase order statuses.
const (
	POPending   = "pending"
	POShipped   = "shipped"
	POReceived  = "received"
	POCancelled = "cancelled"
)

// BundleItem is one constituent of a bundle product.
type BundleItem struct {
	ProductID   string `json:"productId" validate:"required"`
	ProductName string `json:"productName"`
	Quantity    int64  `json:"quantity" validate:"gt=0"`
}

// Product is a catalog entry. For bundles, Cost is derived from the
// constituents and is not independently settable.
type Product struct {
	ID           string       `json:"id"`
	Name         string       `json:"name" validate:"required"`
	CategoryID   string       `json:"categoryId"`
	CategoryName string       `json:"categoryName,omitempty"`
	Barcode      string       `json:"barcode"`
	SKU          string       `json:"sku"`
	Price        int64        `json:"price" validate:"gte=0"`
	Cost         int64        `json:"cost" validate:"gte=0"`
	Stock        int64        `json:"stock" validate:"gte=0"`
	MinStock     int64        `json:"minStock" validate:"gte=0"`
	Description  string       `json:"description,omitempty"`
	IsBundle     bool         `json:"isBundle"`
	BundleItems  []BundleItem `json:"bundleItems,omitempty" validate:"omitempty,dive"`
	CreatedAt    int64        `json:"createdAt"`
	UpdatedAt    int64        `json:"updatedAt"`
}

// Category groups products.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// CustomerPrice is a customer-specific unit price replacing the catalog price.
type CustomerPrice struct {
	ProductID   string `json:"productId" validate:"required"`
	CustomPrice int64  `json:"customPrice" validate:"gt=0"`
}

// Customer holds contact details and optional per-product price overrides.
// At most one override exists per product.
type Customer struct {
	ID           string          `json:"id"`
	Name         string          `json:"name" validate:"required"`
	Email        string          `json:"email,omitempty"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address,omitempty"`
	CustomPrices []CustomerPrice `json:"customPrices,omitempty" validate:"omitempty,dive"`
	CreatedAt    int64           `json:"createdAt"`
	UpdatedAt    int64           `json:"updatedAt"`
}

// OverrideFor returns the override price for a product if one exists.
func (c *Customer) OverrideFor(productID string) (int64, bool) {
	if c == nil {
		return 0, false
	}
	for _, cp := range c.CustomPrices {
		if cp.ProductID == productID {
			return cp.CustomPrice, true
		}
	}
	return 0, false
}

// Supplier is a purchase-order counterparty.
type Supplier struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone"`
	Address   string `json:"address,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// PurchaseOrderItem is a product line on a purchase order, priced at cost.
type PurchaseOrderItem struct {
	ProductID   string `json:"productId" validate:"required"`
	ProductName string `json:"productName"`
	Quantity    int64  `json:"quantity" validate:"gt=0"`
	Cost        int64  `json:"cost" validate:"gte=0"`
	Total       int64  `json:"total"`
}

// PurchaseOrder tracks replenishment from a supplier. Receiving the order
// increments product stock by the ordered quantities.
type PurchaseOrder struct {
	ID           string              `json:"id"`
	SupplierID   string              `json:"supplierId" validate:"required"`
	SupplierName string              `json:"supplierName"`
	Items        []PurchaseOrderItem `json:"items" validate:"min=1,dive"`
	TotalAmount  int64               `json:"totalAmount"`
	Status       string              `json:"status"`
	OrderDate    int64               `json:"orderDate"`
	ShippedDate  int64               `json:"shippedDate,omitempty"`
	ReceivedDate int64               `json:"receivedDate,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	CreatedAt    int64               `json:"createdAt"`
	UpdatedAt    int64               `json:"updatedAt"`
}

// SaleItem is one line of a finalized sale, snapshotted at checkout.
type SaleItem struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int64  `json:"quantity"`
	Price       int64  `json:"price"`
	Total       int64  `json:"total"`
}

// Sale is immutable once created; the only permitted mutation is flipping
// PaymentStatus from unpaid to paid with a PaidDate.
type Sale struct {
	ID            string     `json:"id"`
	CustomerID    string     `json:"customerId,omitempty"`
	CustomerName  string     `json:"customerName"`
	Items         []SaleItem `json:"items"`
	Subtotal      int64      `json:"subtotal"`
	Tax           int64      `json:"tax"`
	Discount      int64      `json:"discount"`
	Total         int64      `json:"total"`
	PaymentMethod string     `json:"paymentMethod"`
	PaymentStatus string     `json:"paymentStatus,omitempty"`
	DueDate       int64      `json:"dueDate,omitempty"`
	SaleDate      int64      `json:"saleDate"`
	PaidDate      int64      `json:"paidDate,omitempty"`
	CreatedAt     int64      `json:"createdAt"`
	UpdatedAt     int64      `json:"updatedAt"`
}

// TaxSetting lives at settings/tax. Rate is a percentage.
type TaxSetting struct {
	Rate      float64 `json:"rate" validate:"gte=0,lte=100"`
	UpdatedAt int64   `json:"updatedAt,omitempty"`
}

// StoreProfile lives at settings/store and feeds receipt headers.
type StoreProfile struct {
	Name          string `json:"name" validate:"required"`
	Address       string `json:"address,omitempty"`
	Phone         string `json:"phone,omitempty"`
	ReceiptFooter string `json:"receiptFooter,omitempty"`
	UpdatedAt     int64  `json:"updatedAt,omitempty"`
}

// Backup is a full-dataset export.
type Backup struct {
	Products       map[string]Product       `json:"products"`
	Categories     map[string]Category      `json:"categories"`
	Customers      map[string]Customer      `json:"customers"`
	Suppliers      map[string]Supplier      `json:"suppliers"`
	PurchaseOrders map[string]PurchaseOrder `json:"purchaseOrders"`
	Sales          map[string]Sale          `json:"sales"`
	Timestamp      int64                    `json:"timestamp"`
}
