package checkout

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/pithecene-io/embedpay/config"
	"github.com/pithecene-io/embedpay/host"
	"github.com/pithecene-io/embedpay/navigation"
	"github.com/pithecene-io/embedpay/types"
)

// NewPrequalSession creates a session presenting the prequalification flow
// at prequalURL. It needs no fetch; call Open.
func NewPrequalSession(deps Deps, prequalURL string) *Session {
	s := New(deps)
	s.flow = types.FlowPrequal
	s.present = func() error {
		s.deps.Surface.LoadURL(prequalURL)
		return nil
	}
	return s
}

// ModalRequest parameterizes an informational modal.
type ModalRequest struct {
	Type    host.ModalType
	Amount  float64
	ModalID string
}

// NewModalSession creates a session presenting an informational modal.
// Call Open.
func NewModalSession(deps Deps, req ModalRequest) *Session {
	s := New(deps)
	s.flow = types.FlowModal
	s.present = func() error {
		if s.deps.Config == nil {
			return types.ErrNotInitialized
		}
		page, err := ModalHTML(s.deps.Config, req)
		if err != nil {
			return err
		}
		s.deps.Surface.LoadContent(s.deps.Config.APIBaseURL(), page)
		return nil
	}
	return s
}

// Open presents a prequal or modal session.
func (s *Session) Open() error {
	if s.present == nil {
		return fmt.Errorf("%w: session has no static entry point, use Start", types.ErrInvalidConfig)
	}
	if s.state != StateIdle {
		return types.ErrSessionUsed
	}
	s.begin(s.flow)
	if err := s.present(); err != nil {
		s.state = StateTerminal
		s.detector.Disarm()
		s.deps.Surface.Destroy()
		return err
	}
	s.state = StatePresenting
	s.deps.Surface.SetVisible(true)
	return nil
}

var modalTemplate = template.Must(template.New("modal").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<script>
_affirm_config = { public_api_key: {{.PublicKey}}, script: {{.Script}} };
</script>
<script src="{{.Script}}"></script>
</head>
<body>
<script>
affirm.ui.ready(function () {
  affirm.ui.openModal({
    type: {{.Type}},
    amount: {{.Amount}},
    id: {{.ModalID}},
    onClose: function () { window.location.href = {{.CancelURL}}; }
  });
});
</script>
</body>
</html>
`))

type modalData struct {
	PublicKey string
	Script    string
	Type      string
	Amount    int64
	ModalID   string
	CancelURL string
}

// ModalHTML renders the page of an informational modal. Closing the modal
// navigates to the cancel URL, which ends the session.
func ModalHTML(cfg *config.Config, req ModalRequest) (string, error) {
	modalType := req.Type
	if modalType == "" {
		modalType = host.ModalSite
	}
	var buf bytes.Buffer
	err := modalTemplate.Execute(&buf, modalData{
		PublicKey: cfg.PublicKey,
		Script:    cfg.JSURL(),
		Type:      string(modalType),
		Amount:    types.PromoRequest{Amount: req.Amount}.AmountCents(),
		ModalID:   req.ModalID,
		CancelURL: navigation.CancelURL,
	})
	if err != nil {
		return "", fmt.Errorf("render modal: %w", err)
	}
	return buf.String(), nil
}
