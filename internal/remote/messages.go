package remote

// Message types for the decode protocol.
//
// A request is a TypeConvert message followed by one binary message holding
// the raw container. The reply is either TypeResult followed by one binary
// message holding the encoded image, or TypeError.
const (
	TypeConvert = "convert"
	TypeResult  = "result"
	TypeError   = "error"
	TypePing    = "ping"
	TypePong    = "pong"
)

// Error kinds besides the decoder's own (see decoder.Kind).
const (
	KindBadRequest = "bad_request"
	KindBadFormat  = "bad_format"
)

// Message is the envelope for all text messages.
type Message struct {
	Type   string `json:"type"`
	ID     uint64 `json:"id,omitempty"`
	Format string `json:"format,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Msg    string `json:"message,omitempty"`
}
