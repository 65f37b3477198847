package anthropic

import (
	"encoding/json"

	"github.com/HerbHall/plangen/pkg/llm"
)

// decodeStatus prefers the message in Anthropic's error envelope over the
// raw body. not_found_error only ever concerns the model, so the message
// is tagged for llm.IsModelNotFoundError.
func decodeStatus(status int, body []byte) error {
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) != nil || envelope.Error.Message == "" {
		return llm.NewHTTPError(status, string(body))
	}

	msg := envelope.Error.Message
	if envelope.Error.Type == "not_found_error" {
		msg = "model: " + msg
	}
	return llm.NewHTTPError(status, msg)
}
