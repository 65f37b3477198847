package ws

import (
	"time"

	"github.com/HerbHall/plangen/internal/store"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessagePlanChunk  MessageType = "plan.chunk"
	MessagePlanDone   MessageType = "plan.done"
	MessagePlanError  MessageType = "plan.error"
	MessageGeneration MessageType = "generation.recorded"
)

// Message is the envelope for all WebSocket messages. ID ties the
// messages of one plan request together.
type Message struct {
	Type      MessageType `json:"type"`
	ID        string      `json:"id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data,omitempty"`
}

// ChunkData is the payload of plan.chunk messages.
type ChunkData struct {
	Content string `json:"content"`
}

// DoneData is the payload of plan.done messages.
type DoneData struct {
	FullContent string `json:"fullContent"`
}

// ErrorData is the payload of plan.error messages. Status is the HTTP
// status the same failure maps to on the REST endpoints.
type ErrorData struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// GenerationData is the payload of generation.recorded messages.
type GenerationData struct {
	Generation store.Generation `json:"generation"`
}
