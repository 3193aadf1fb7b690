// Package sim hosts embedded flows outside a real screen: a recording
// surface, a scripted driver that replays navigations on the dispatcher,
// and an offline transport that answers checkout creation locally.
package sim

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/pithecene-io/embedpay/navigation"
)

// Action is what a step does to the session's surface.
type Action string

// Step actions.
const (
	ActionNavigate       Action = "navigate"
	ActionTransportError Action = "error"
	ActionDismiss        Action = "dismiss"
)

// Step is one scripted surface event.
type Step struct {
	Action Action `json:"action" yaml:"action"`
	// URL is the navigation target for ActionNavigate.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// Message is the transport error for ActionTransportError.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

func (s Step) String() string {
	switch s.Action {
	case ActionNavigate:
		return "navigate " + s.URL
	case ActionTransportError:
		return "error " + s.Message
	default:
		return string(s.Action)
	}
}

// Navigate returns a navigation step.
func Navigate(rawURL string) Step { return Step{Action: ActionNavigate, URL: rawURL} }

// Confirm returns the navigation a checkout flow makes when the buyer
// confirms with token.
func Confirm(token string) Step {
	return Navigate(navigation.ConfirmURL + "?checkout_token=" + url.QueryEscape(token))
}

// ConfirmCard returns the navigation a VCN flow makes when a card is issued.
// data is the JSON card document.
func ConfirmCard(data string) Step {
	return Navigate(navigation.ConfirmURL + "?data=" + url.QueryEscape(data))
}

// CancelStep returns the cancel navigation, with reason when non-empty.
func CancelStep(reason string) Step {
	if reason == "" {
		return Navigate(navigation.CancelURL)
	}
	return Navigate(navigation.CancelURL + "?reason=" + url.QueryEscape(reason))
}

// ErrEmptyStep is returned for a blank step.
var ErrEmptyStep = errors.New("empty step")

// ParseStep parses the command-line form of a step:
//
//	confirm[:token]  cancel[:reason]  close  card:<json>
//	navigate:<url>   error[:message]  dismiss
func ParseStep(s string) (Step, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Step{}, ErrEmptyStep
	}
	name, arg, _ := strings.Cut(s, ":")
	switch strings.ToLower(name) {
	case "confirm":
		if arg == "" {
			arg = "sim-token"
		}
		return Confirm(arg), nil
	case "card":
		if arg == "" {
			return Step{}, fmt.Errorf("card step needs a JSON card document")
		}
		return ConfirmCard(arg), nil
	case "cancel":
		return CancelStep(arg), nil
	case "close":
		return Navigate(navigation.ReferringURL), nil
	case "navigate":
		if arg == "" {
			return Step{}, fmt.Errorf("navigate step needs a URL")
		}
		return Navigate(arg), nil
	case "error":
		if arg == "" {
			arg = "connection failed"
		}
		return Step{Action: ActionTransportError, Message: arg}, nil
	case "dismiss":
		return Step{Action: ActionDismiss}, nil
	default:
		return Step{}, fmt.Errorf("unknown step %q (want confirm, card, cancel, close, navigate, error or dismiss)", name)
	}
}

// ParseSteps parses every step in order.
func ParseSteps(raw []string) ([]Step, error) {
	steps := make([]Step, 0, len(raw))
	for i, s := range raw {
		step, err := ParseStep(s)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}
