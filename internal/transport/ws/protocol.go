package ws

// Inbound frame types.
const (
	TypeStop         = "stop"
	TypeIntervention = "intervention"
)

// InboundMessage is a frame sent by a client.
type InboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}
