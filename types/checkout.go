package types

// Checkout is the order handed to the remote checkout service.
// Only the fields the library reads are typed; the rest travel in Extra.
type Checkout struct {
	OrderID        string          `json:"order_id,omitempty"`
	Currency       string          `json:"currency,omitempty"`
	Items          map[string]Item `json:"items,omitempty"`
	Shipping       *Shipping       `json:"shipping,omitempty"`
	Billing        *Shipping       `json:"billing,omitempty"`
	ShippingAmount int64           `json:"shipping_amount"`
	TaxAmount      int64           `json:"tax_amount"`
	Total          int64           `json:"total"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
}

// Item is a single line item, amounts in cents.
type Item struct {
	DisplayName string `json:"display_name"`
	SKU         string `json:"sku"`
	UnitPrice   int64  `json:"unit_price"`
	Qty         int    `json:"qty"`
	ItemURL     string `json:"item_url,omitempty"`
	ImageURL    string `json:"item_image_url,omitempty"`
}

// Shipping is a shipping or billing contact.
type Shipping struct {
	Name    map[string]string `json:"name,omitempty"`
	Address map[string]string `json:"address,omitempty"`
	Email   string            `json:"email,omitempty"`
	Phone   string            `json:"phone_number,omitempty"`
}

// CheckoutHandle is returned by the remote service for a created checkout.
type CheckoutHandle struct {
	CheckoutID  string `json:"checkout_id"`
	RedirectURL string `json:"redirect_url"`
}
