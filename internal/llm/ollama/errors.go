package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/HerbHall/plangen/pkg/llm"
	"github.com/ollama/ollama/api"
)

var errNoMessages = llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil)

// mapError converts client, network and decode failures into
// *llm.ProviderError. Already-typed errors pass through.
func mapError(err error) error {
	var (
		pe     *llm.ProviderError
		status api.StatusError
		netErr net.Error
		syntax *json.SyntaxError
	)

	switch {
	case err == nil:
		return nil
	case errors.As(err, &pe):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return llm.NewTimeoutError(err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return llm.NewTimeoutError(err)
	case errors.As(err, &status):
		msg := status.ErrorMessage
		if msg == "" {
			msg = status.Status
		}
		return llm.NewHTTPError(status.StatusCode, msg)
	case errors.As(err, &syntax), errors.Is(err, io.ErrUnexpectedEOF):
		return llm.NewProviderError(llm.ErrCodeInvalidResponse, "ollama: malformed response", err)
	default:
		return llm.NewTransportError("ollama: request failed", err)
	}
}

// statusError builds an api.StatusError from a non-2xx chat response,
// preferring Ollama's {"error": "..."} body over the bare status text.
func statusError(resp *http.Response) api.StatusError {
	se := api.StatusError{StatusCode: resp.StatusCode, Status: resp.Status, ErrorMessage: resp.Status}

	var body struct {
		Error string `json:"error"`
	}
	if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body) == nil && body.Error != "" {
		se.ErrorMessage = body.Error
	}
	return se
}
