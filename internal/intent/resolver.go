package intent

import (
	"strings"

	"github.com/calcvoice/calcvoice/internal/expr"
)

// calculateTriggers force the calculate intent no matter what the
// classifier said; saying "equals" mid-expression always evaluates.
var calculateTriggers = []string{"equals", "equal", "result", "calculate"}

// minTriggerConfidence is the floor applied when a trigger word fires. An
// already-higher classifier confidence is never lowered.
const minTriggerConfidence = 0.6

// Resolve combines the classifier output with the normalized expression
// into the final action. This is the only place actions are computed.
func Resolve(transcript, label string, confidence float64, norm expr.Normalized) Result {
	lowered := strings.ToLower(transcript)
	for _, trigger := range calculateTriggers {
		if strings.Contains(lowered, trigger) {
			label = LabelCalculate
			if confidence < minTriggerConfidence {
				confidence = minTriggerConfidence
			}
			break
		}
	}

	action := ActionNoop
	switch {
	case label == LabelCalculate:
		action = ActionCalculate
	case label == LabelClear:
		action = ActionClear
	case label == LabelBackspace:
		action = ActionBackspace
	case label == LabelStop:
		action = ActionStop
	case label == LabelExpression && norm.Text != "":
		action = ActionAppendExpression
	case label == LabelNoop && norm.Text != "":
		// A recognizable expression should not be discarded just because
		// the classifier was unsure.
		label = LabelExpression
		action = ActionAppendExpression
	}

	var expression *string
	if norm.Text != "" {
		text := norm.Text
		expression = &text
	}

	return Result{
		Raw:                  transcript,
		Intent:               label,
		Confidence:           confidence,
		Action:               action,
		Expression:           expression,
		ExpressionConfidence: norm.Confidence,
	}
}
