// Package wire is the JSON-over-HTTP plumbing shared by the hosted
// provider adapters: request encoding, static auth headers, status
// checking and mapping of transport failures onto llm.ProviderError.
package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/HerbHall/plangen/pkg/llm"
)

// maxErrorBody caps how much of a failed response is read.
const maxErrorBody = 64 << 10

// StatusDecoder turns a non-2xx response body into an error. Providers
// with a structured error envelope supply one to surface its message.
type StatusDecoder func(status int, body []byte) error

// Client sends JSON requests to one API base URL.
type Client struct {
	provider string
	base     string
	http     *http.Client
	header   http.Header
	status   StatusDecoder
}

// New creates a Client for provider (used in error messages). header is
// applied to every request; status may be nil.
func New(provider, baseURL string, hc *http.Client, header http.Header, status StatusDecoder) *Client {
	if status == nil {
		status = func(code int, body []byte) error { return llm.NewHTTPError(code, string(body)) }
	}
	return &Client{
		provider: provider,
		base:     strings.TrimRight(baseURL, "/"),
		http:     hc,
		header:   header,
		status:   status,
	}
}

// Send issues method on path with body encoded as JSON (nil for none) and
// returns a 2xx response whose body the caller closes. Every error is an
// *llm.ProviderError.
func (c *Client) Send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var payload io.Reader = http.NoBody
	if body != nil {
		raw, ok := body.([]byte)
		if !ok {
			var err error
			if raw, err = json.Marshal(body); err != nil {
				return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, c.provider+": encode request", err)
			}
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, c.provider+": build request", err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.MapError(err)
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, c.MapError(c.status(resp.StatusCode, data))
	}
	return resp, nil
}

// Call is Send followed by decoding the JSON reply into out.
func (c *Client) Call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return c.MapError(err)
	}
	return nil
}

// MapError classifies err. Typed provider errors pass through; deadlines
// and cancellation become timeouts; undecodable replies become invalid
// responses; anything else is a transport failure.
func (c *Client) MapError(err error) error {
	var (
		pe        *llm.ProviderError
		netErr    net.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
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
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.ErrUnexpectedEOF):
		return llm.NewProviderError(llm.ErrCodeInvalidResponse, c.provider+": malformed response", err)
	default:
		return llm.NewTransportError(fmt.Sprintf("%s: request failed", c.provider), err)
	}
}
