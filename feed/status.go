package feed

// Status is the transport channel's connection state. Exactly one value
// holds at a time; transitions are driven solely by the channel itself.
type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusDisconnected
	StatusError
)

// Statuses lists every status value, for consumers that key gauges or
// tables by state.
var Statuses = []Status{StatusConnecting, StatusConnected, StatusDisconnected, StatusError}

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}
