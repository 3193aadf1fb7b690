package types

// Version is the canonical library version.
// The CLI, envelope wire format and SDK metadata share this version.
const Version = "0.3.0"

// SDKName is reported to the remote service in checkout metadata.
const SDKName = "embedpay-go"
