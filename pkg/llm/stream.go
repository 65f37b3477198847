package llm

import (
	"iter"
	"strings"
)

// Collect drains a stream and returns the concatenated fragments.
// It stops at the first error and returns the text gathered so far with it.
func Collect(stream iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for fragment, err := range stream {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(fragment)
	}
	return b.String(), nil
}

// StreamError returns a stream that yields only err.
func StreamError(err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", err)
	}
}
