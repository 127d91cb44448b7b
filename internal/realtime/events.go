package realtime

type SSEEvent string

const (
	SSEEventBlockCreated SSEEvent = "BlockCreated"
	SSEEventBlockPatched SSEEvent = "BlockPatched"
	SSEEventMessageDone  SSEEvent = "MessageDone"
	SSEEventMessageError SSEEvent = "MessageError"
	SSEEventChatCreated  SSEEvent = "ChatCreated"
)

// SSEMessage is the envelope published on the bus and forwarded to
// subscribed clients. Channel is the chat id.
type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}
