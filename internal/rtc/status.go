package rtc

// Status is the call client's connection status.
//
// The happy path runs initializing -> waiting -> connecting -> connected.
// disconnected, failed, closed and error are terminal for this session
// attempt; recovery is a fresh join, never an in-place retry.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusWaiting      Status = "waiting"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusFailed       Status = "failed"
	StatusClosed       Status = "closed"
	StatusError        Status = "error"
)
