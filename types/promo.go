package types

// PageType is the merchant page a promotion is shown on.
type PageType string

// Page types accepted by the promo service.
const (
	PageBanner   PageType = "banner"
	PageCart     PageType = "cart"
	PageCategory PageType = "category"
	PageHomepage PageType = "homepage"
	PageLanding  PageType = "landing"
	PagePayment  PageType = "payment"
	PageProduct  PageType = "product"
	PageSearch   PageType = "search"
)

// ClickRoute selects the flow opened when fetched promo content is clicked.
type ClickRoute int

const (
	// RouteNone means no content has been fetched; clicks are ignored.
	RouteNone ClickRoute = iota
	// RoutePrequal opens the richer prequalification flow.
	RoutePrequal
	// RouteModal opens the generic product modal.
	RouteModal
)

func (r ClickRoute) String() string {
	switch r {
	case RoutePrequal:
		return "prequal"
	case RouteModal:
		return "modal"
	default:
		return "none"
	}
}

// PromoRequest parameterizes a promotional message fetch.
type PromoRequest struct {
	PromoID  string   `json:"promo_id,omitempty"`
	PageType PageType `json:"page_type,omitempty"`
	// Amount is the product price in dollars, e.g. 112.02.
	Amount  float64 `json:"amount"`
	ShowCTA bool    `json:"show_cta"`
}

// AmountCents returns Amount converted to whole cents.
func (r PromoRequest) AmountCents() int64 {
	return int64(r.Amount*100 + 0.5)
}

// PromoContent is the fetched promotional message together with the click
// route the server selected for it.
type PromoContent struct {
	Text  string     `json:"text"`
	HTML  string     `json:"html"`
	Route ClickRoute `json:"route"`
}
