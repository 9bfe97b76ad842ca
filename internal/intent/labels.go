package intent

// Intent labels form a closed set shared by the classifier, the training
// corpus and the resolver. Anything else is rejected at the boundary.
const (
	LabelExpression = "expression"
	LabelCalculate  = "calculate"
	LabelClear      = "clear"
	LabelBackspace  = "backspace"
	LabelStop       = "stop"
	LabelNoop       = "noop"
)

// Labels lists the supported intent labels in a fixed order.
var Labels = []string{
	LabelExpression,
	LabelCalculate,
	LabelClear,
	LabelBackspace,
	LabelStop,
	LabelNoop,
}

// ValidLabel reports whether label belongs to the supported set.
func ValidLabel(label string) bool {
	for _, l := range Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Action is the single calculator command derived from one utterance.
type Action string

const (
	ActionAppendExpression Action = "append_expression"
	ActionCalculate        Action = "calculate"
	ActionClear            Action = "clear"
	ActionBackspace        Action = "backspace"
	ActionStop             Action = "stop"
	ActionNoop             Action = "noop"
)

// Result is the interpreted outcome of one utterance. Immutable once
// constructed; exactly one is produced per transcript.
type Result struct {
	Raw                  string  `json:"raw"`
	Intent               string  `json:"intent"`
	Confidence           float64 `json:"confidence"`
	Action               Action  `json:"action"`
	Expression           *string `json:"expression"`
	ExpressionConfidence float64 `json:"expression_confidence"`
}

// Sample is one labeled training record.
type Sample struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}
