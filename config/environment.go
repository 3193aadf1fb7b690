package config

import "fmt"

const (
	httpsPrefix = "https://"
	jsPath      = "/js/v2/affirm.js"
	trackerPath = "/collect"
)

// Environment selects the remote service the flows talk to.
type Environment string

// Environments.
const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

// ParseEnvironment validates an environment name. Empty means production.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case "", Production:
		return Production, nil
	case Sandbox:
		return Sandbox, nil
	default:
		return "", fmt.Errorf("invalid environment %q (must be sandbox or production)", s)
	}
}

// BaseHost returns the API host.
func (e Environment) BaseHost() string {
	if e == Sandbox {
		return "sandbox.affirm.com"
	}
	return "api.affirm.com"
}

// JSHost returns the CDN host serving the client script.
func (e Environment) JSHost() string {
	if e == Sandbox {
		return "cdn1-sandbox.affirm.com"
	}
	return "cdn1.affirm.com"
}

// TrackerHost returns the order-tracking host; it is shared by both environments.
func (e Environment) TrackerHost() string {
	return "tracker.affirm.com"
}
