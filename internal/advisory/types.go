package advisory

import "encoding/json"

// Capability names the analytics question put to the advisory service.
type Capability string

const (
	CapabilityFairness Capability = "FAIRNESS"
	CapabilityBooking  Capability = "BOOKING_SUGGESTIONS"
	CapabilityForecast Capability = "USAGE_FORECAST"
	CapabilityCost     Capability = "COST_OPTIMIZATION"
)

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityFairness, CapabilityBooking, CapabilityForecast, CapabilityCost:
		return true
	}
	return false
}

// Request is the body posted to the advisory service.
type Request struct {
	Capability Capability  `json:"capability"`
	GroupID    string      `json:"groupId"`
	Model      string      `json:"model,omitempty"`
	Payload    interface{} `json:"payload"`
}

// Response carries the advisory result. A null or missing Result means the
// service had nothing to offer and the caller should compute its own answer.
type Response struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}
