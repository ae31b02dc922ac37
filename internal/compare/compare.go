// Package compare measures the poculum encoding of a document against other
// serializations of the same document.
package compare

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/unkn0wn-root/poculum"
	"github.com/unkn0wn-root/poculum/codec"
)

// Result is one format's measurement. Encode and Decode are per-operation
// averages over the run's iterations.
type Result struct {
	Name   string
	Size   int
	Encode time.Duration
	Decode time.Duration
}

// Reduction is the percentage by which r is smaller than base.
// Negative when r is larger.
func (r Result) Reduction(base Result) float64 {
	if base.Size == 0 {
		return 0
	}
	return (1 - float64(r.Size)/float64(base.Size)) * 100
}

// Candidate is a format under test.
type Candidate struct {
	Name string
	run  func(doc any, iterations int) (Result, error)
}

// For builds a Candidate from a codec. prepare converts the plain document
// into the codec's value type once, outside the timed loop.
func For[V any](name string, c codec.Codec[V], prepare func(any) (V, error)) Candidate {
	return Candidate{
		Name: name,
		run: func(doc any, iterations int) (Result, error) {
			v, err := prepare(doc)
			if err != nil {
				return Result{}, fmt.Errorf("compare %s: %w", name, err)
			}

			var b []byte
			start := time.Now()
			for i := 0; i < iterations; i++ {
				if b, err = c.Encode(v); err != nil {
					return Result{}, fmt.Errorf("compare %s: %w", name, err)
				}
			}
			enc := time.Since(start)

			start = time.Now()
			for i := 0; i < iterations; i++ {
				if _, err = c.Decode(b); err != nil {
					return Result{}, fmt.Errorf("compare %s: %w", name, err)
				}
			}
			dec := time.Since(start)

			n := time.Duration(iterations)
			return Result{Name: name, Size: len(b), Encode: enc / n, Decode: dec / n}, nil
		},
	}
}

func identity(x any) (any, error) { return x, nil }

// Baseline is the name of the candidate reductions are reported against.
const Baseline = "json"

// Default returns poculum and the formats it is compared with: JSON as the
// baseline, msgpack, deterministic CBOR, and protobuf's dynamic Value.
func Default(c *poculum.Coder) []Candidate {
	return []Candidate{
		For[poculum.Value]("poculum", codec.Poculum{C: c}, poculum.ValueOf),
		For[any](Baseline, codec.JSON[any]{}, identity),
		For[any]("msgpack", codec.Msgpack[any]{}, identity),
		For[any]("cbor", codec.MustCBOR[any](true), identity),
		For[*structpb.Value]("protobuf", codec.StructValue(), codec.ToStructValue),
	}
}

// Report holds the results of one run in candidate order.
type Report struct {
	Iterations int
	Results    []Result
}

// Get returns the result named name.
func (r Report) Get(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Run measures each candidate against doc. A failing candidate aborts the
// run.
func Run(doc any, iterations int, candidates []Candidate) (Report, error) {
	if iterations <= 0 {
		return Report{}, errors.New("compare: iterations must be positive")
	}
	rep := Report{Iterations: iterations, Results: make([]Result, 0, len(candidates))}
	for _, c := range candidates {
		res, err := c.run(doc, iterations)
		if err != nil {
			return Report{}, err
		}
		rep.Results = append(rep.Results, res)
	}
	return rep, nil
}

// SampleDocument is the document measured when no input is given: a list of
// the numbers 0 through 999 and a 500-byte string.
func SampleDocument() map[string]any {
	numbers := make([]any, 1000)
	for i := range numbers {
		numbers[i] = i
	}
	text := make([]byte, 0, 500)
	for i := 0; i < 100; i++ {
		text = append(text, "hello"...)
	}
	return map[string]any{"numbers": numbers, "text": string(text)}
}
