package llm

import (
	"context"
	"errors"
	"iter"

	pkgllm "github.com/HerbHall/plangen/pkg/llm"
	"github.com/prometheus/client_golang/prometheus"
)

var callsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plangen_provider_calls_total",
		Help: "Generation calls by provider and outcome.",
	},
	[]string{"provider", "outcome"},
)

func init() {
	prometheus.MustRegister(callsTotal)
}

// Instrument wraps p so every Invoke and every fully consumed Stream is
// counted. The outcome label is "ok", "cancelled" when the consumer
// stopped early, or the provider error code.
func Instrument(p pkgllm.Provider) pkgllm.Provider {
	if hr, ok := p.(pkgllm.HealthReporter); ok {
		return &instrumentedReporter{instrumented{p}, hr}
	}
	return &instrumented{p}
}

// unwrap returns the provider underneath an Instrument wrapper.
func unwrap(p pkgllm.Provider) pkgllm.Provider {
	switch w := p.(type) {
	case *instrumented:
		return w.Provider
	case *instrumentedReporter:
		return w.Provider
	}
	return p
}

type instrumented struct {
	pkgllm.Provider
}

type instrumentedReporter struct {
	instrumented
	pkgllm.HealthReporter
}

func (i *instrumented) Invoke(ctx context.Context, messages []pkgllm.Message, opts ...pkgllm.CallOption) (*pkgllm.Response, error) {
	resp, err := i.Provider.Invoke(ctx, messages, opts...)
	callsTotal.WithLabelValues(i.Provider.Name(), outcome(err)).Inc()
	return resp, err
}

func (i *instrumented) Stream(ctx context.Context, messages []pkgllm.Message, opts ...pkgllm.CallOption) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		result := "ok"
		defer func() { callsTotal.WithLabelValues(i.Provider.Name(), result).Inc() }()

		for fragment, err := range i.Provider.Stream(ctx, messages, opts...) {
			if err != nil {
				result = outcome(err)
			}
			if !yield(fragment, err) {
				if err == nil {
					result = "cancelled"
				}
				return
			}
		}
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var pe *pkgllm.ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return "error"
}
