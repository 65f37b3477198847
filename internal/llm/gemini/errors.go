package gemini

import (
	"context"
	"errors"
	"net"

	"github.com/HerbHall/plangen/pkg/llm"
	"google.golang.org/genai"
)

// mapError translates SDK and network errors into typed llm.ProviderError values.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pe *llm.ProviderError
	if errors.As(err, &pe) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return llm.NewTimeoutError(err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return llm.NewTimeoutError(err)
	}

	var ae genai.APIError
	if errors.As(err, &ae) && ae.Code != 0 {
		return llm.NewHTTPError(ae.Code, ae.Message)
	}

	return llm.NewTransportError("gemini: request failed", err)
}
