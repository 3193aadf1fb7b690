package sim

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pithecene-io/embedpay/api"
	"github.com/pithecene-io/embedpay/iox"
)

// OfflineRedirectURL is the flow URL returned by OfflineTransport.
const OfflineRedirectURL = "https://sandbox.affirm.com/checkout/offline"

// OfflineTransport answers checkout creation without a network so flows
// can be simulated with any public key. Every other request gets a 404.
type OfflineTransport struct {
	// RedirectURL overrides OfflineRedirectURL.
	RedirectURL string
}

// Client returns an HTTP client using t.
func (t *OfflineTransport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// RoundTrip implements http.RoundTripper.
func (t *OfflineTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		iox.DiscardClose(req.Body)
	}
	if req.Method != http.MethodPost || !strings.HasSuffix(req.URL.Path, api.CheckoutPath) {
		return respond(req, http.StatusNotFound, map[string]string{"message": "not available offline"})
	}
	redirect := t.RedirectURL
	if redirect == "" {
		redirect = OfflineRedirectURL
	}
	id := uuid.NewString()
	return respond(req, http.StatusOK, map[string]string{
		"checkout_id":  id,
		"redirect_url": redirect + "?checkout_id=" + id,
	})
}

func respond(req *http.Request, status int, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: int64(len(data)),
		Request:       req,
	}, nil
}
