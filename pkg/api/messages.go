package api

// MessageType identifies the type of a push-channel message.
type MessageType string

// Inbound message types sent by clients.
const (
	MessageGenerate MessageType = "generate"
	MessageCancel   MessageType = "cancel"
)

// Outbound message types pushed to clients.
const (
	MessageChunk     MessageType = "chunk"
	MessageCancelled MessageType = "cancelled"
	MessageCancelAck MessageType = "cancel_ack"
	MessageDone      MessageType = "done"
	MessageError     MessageType = "error"
)

// DoneSentinel terminates a one-shot SSE stream.
const DoneSentinel = "[DONE]"

// Chunk is the stable payload for one unit of generated text.
type Chunk struct {
	Text string `json:"text"`
}

// ClientMessage is a request received over the push channel.
// Prompt is only meaningful for generate.
type ClientMessage struct {
	Type      MessageType `json:"type" validate:"required,oneof=generate cancel"`
	RequestID string      `json:"request_id" validate:"required,maxbytes=256"`
	Prompt    string      `json:"prompt,omitempty" validate:"max=65536"`
}

// ServerMessage is a message pushed to a push-channel client. Every message
// tied to a generation carries the request id it belongs to.
type ServerMessage struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Text      string      `json:"text,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
}

// NewChunkMessage returns a chunk message for requestID.
func NewChunkMessage(requestID, text string) ServerMessage {
	return ServerMessage{Type: MessageChunk, RequestID: requestID, Text: text}
}

// NewCancelledMessage returns the notice sent to the generating caller
// when its session stops because of cancellation.
func NewCancelledMessage(requestID string) ServerMessage {
	return ServerMessage{Type: MessageCancelled, RequestID: requestID}
}

// NewCancelAckMessage returns the acknowledgment sent to the cancelling
// caller when a live session was found.
func NewCancelAckMessage(requestID string) ServerMessage {
	return ServerMessage{Type: MessageCancelAck, RequestID: requestID}
}

// NewDoneMessage returns the optional completion notice.
func NewDoneMessage(requestID string) ServerMessage {
	return ServerMessage{Type: MessageDone, RequestID: requestID}
}

// NewErrorMessage wraps an APIError in a push-channel message.
func NewErrorMessage(requestID string, err *APIError) ServerMessage {
	return ServerMessage{Type: MessageError, RequestID: requestID, Error: err}
}

// IsTerminal reports whether the message ends a generation session.
func (m ServerMessage) IsTerminal() bool {
	switch m.Type {
	case MessageCancelled, MessageDone, MessageError:
		return true
	}
	return false
}
