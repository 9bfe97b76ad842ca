package intent

import (
	"strings"
	"sync/atomic"

	"github.com/calcvoice/calcvoice/internal/expr"
)

// Interpreter bundles the classifier with the lexer, normalizer and
// resolver pipeline. It is constructed once at startup and passed by
// reference; model reloads swap the classifier atomically so in-flight
// Interpret calls keep the instance they started with.
type Interpreter struct {
	model atomic.Pointer[Model]
}

// NewInterpreter wraps a trained model.
func NewInterpreter(model *Model) *Interpreter {
	in := &Interpreter{}
	in.model.Store(model)
	return in
}

// BuildModel trains a model from the stored corpus merged with the
// synthetic expression corpus. Stored samples win on duplicate text.
func BuildModel(samples []Sample) (*Model, error) {
	return Train(MergeSamples(samples, SyntheticSamples()))
}

// Interpret runs the full synchronous pipeline for one transcript and
// returns the resolved action.
func (in *Interpreter) Interpret(transcript string) Result {
	norm := expr.Normalize(expr.Tokenize(transcript))
	label, confidence := in.model.Load().Classify(strings.TrimSpace(transcript))
	return Resolve(transcript, label, confidence, norm)
}

// Classify exposes the raw classifier output for the current model.
func (in *Interpreter) Classify(text string) (string, float64) {
	return in.model.Load().Classify(text)
}

// Swap atomically replaces the model. Callers already inside Interpret
// are unaffected.
func (in *Interpreter) Swap(model *Model) {
	in.model.Store(model)
}
