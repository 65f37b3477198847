// Package sse decodes the line-oriented event feed used by streaming chat APIs.
package sse

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"strings"
)

// Done is the data payload that terminates an OpenAI-style stream.
const Done = "[DONE]"

const dataPrefix = "data:"

// Data yields the payload of every "data:" line in r, in order.
//
// Input is buffered until a full line is available; a trailing line
// without a newline at EOF is incomplete and discarded. Blank lines,
// comments and other fields (event:, id:, retry:) are skipped. A payload
// equal to Done ends the sequence. A read error is yielded last.
func Data(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield("", err)
				}
				return
			}

			line = strings.TrimRight(line, "\r\n")
			payload, ok := strings.CutPrefix(line, dataPrefix)
			if !ok {
				continue
			}
			payload = strings.TrimPrefix(payload, " ")
			if payload == Done {
				return
			}
			if !yield(payload, nil) {
				return
			}
		}
	}
}
