package types

// TrackOrder describes a confirmed order for the tracking pixel.
type TrackOrder struct {
	StoreName     string `json:"storeName"`
	CheckoutID    string `json:"checkoutId,omitempty"`
	Coupon        string `json:"coupon,omitempty"`
	Currency      string `json:"currency"`
	Discount      int64  `json:"discount"`
	OrderID       string `json:"orderId"`
	PaymentMethod string `json:"paymentMethod"`
	Revenue       int64  `json:"revenue"`
	Shipping      int64  `json:"shipping"`
	Tax           int64  `json:"tax"`
	Total         int64  `json:"total"`
}

// TrackProduct is one product line of a tracked order.
type TrackProduct struct {
	Brand     string `json:"brand,omitempty"`
	Category  string `json:"category,omitempty"`
	Coupon    string `json:"coupon,omitempty"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Variant   string `json:"variant,omitempty"`
}

// Track bundles an order with its products.
type Track struct {
	Order    TrackOrder     `json:"order"`
	Products []TrackProduct `json:"products"`
}
