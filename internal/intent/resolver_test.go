package intent

import (
	"testing"

	"github.com/calcvoice/calcvoice/internal/expr"
)

func TestResolveLabelTable(t *testing.T) {
	norm := expr.Normalized{Text: "3+4", Confidence: 1.0}

	tests := []struct {
		label      string
		wantAction Action
	}{
		{LabelClear, ActionClear},
		{LabelBackspace, ActionBackspace},
		{LabelStop, ActionStop},
		{LabelExpression, ActionAppendExpression},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got := Resolve("three plus four", tt.label, 0.9, norm)
			if got.Action != tt.wantAction {
				t.Errorf("action = %q, want %q", got.Action, tt.wantAction)
			}
			if got.Expression == nil || *got.Expression != "3+4" {
				t.Errorf("expression = %v, want 3+4", got.Expression)
			}
			if got.ExpressionConfidence != 1.0 {
				t.Errorf("expression confidence = %v, want 1.0", got.ExpressionConfidence)
			}
		})
	}
}

func TestResolveCalculateTrigger(t *testing.T) {
	norm := expr.Normalized{}

	// Trigger word forces calculate even when the classifier disagrees.
	got := Resolve("three plus four equals", LabelExpression, 0.2, norm)
	if got.Action != ActionCalculate {
		t.Errorf("action = %q, want calculate", got.Action)
	}
	if got.Intent != LabelCalculate {
		t.Errorf("intent = %q, want calculate", got.Intent)
	}
	if got.Confidence != 0.6 {
		t.Errorf("confidence = %v, want 0.6 floor", got.Confidence)
	}

	// A higher classifier confidence is never lowered.
	got = Resolve("calculate", LabelCalculate, 0.95, norm)
	if got.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95 preserved", got.Confidence)
	}

	for _, trigger := range []string{"equals", "equal", "result", "calculate"} {
		got := Resolve("please "+trigger+" now", LabelNoop, 0.1, norm)
		if got.Action != ActionCalculate {
			t.Errorf("trigger %q: action = %q, want calculate", trigger, got.Action)
		}
		if got.Confidence < 0.6 {
			t.Errorf("trigger %q: confidence = %v, want >= 0.6", trigger, got.Confidence)
		}
	}
}

func TestResolveExpressionRequiresText(t *testing.T) {
	got := Resolve("blah blah", LabelExpression, 0.8, expr.Normalized{Confidence: 0.1})
	if got.Action != ActionNoop {
		t.Errorf("action = %q, want noop when normalizer produced nothing", got.Action)
	}
	if got.Expression != nil {
		t.Errorf("expression = %v, want nil", got.Expression)
	}
}

func TestResolveNoopReclassified(t *testing.T) {
	norm := expr.Normalized{Text: "7*5", Confidence: 1.0}
	got := Resolve("seven times five", LabelNoop, 0.2, norm)
	if got.Action != ActionAppendExpression {
		t.Errorf("action = %q, want append_expression", got.Action)
	}
	if got.Intent != LabelExpression {
		t.Errorf("intent = %q, want expression after reclassification", got.Intent)
	}
}

// Every combination of label and normalizer output must resolve to one of
// the six known actions.
func TestResolveActionInvariant(t *testing.T) {
	valid := map[Action]bool{
		ActionAppendExpression: true,
		ActionCalculate:        true,
		ActionClear:            true,
		ActionBackspace:        true,
		ActionStop:             true,
		ActionNoop:             true,
	}

	norms := []expr.Normalized{
		{},
		{Text: "1+1", Confidence: 0.5},
		{Text: "", Confidence: 1.0},
	}
	labels := append([]string{}, Labels...)
	labels = append(labels, "bogus", "")

	for _, label := range labels {
		for _, norm := range norms {
			for _, conf := range []float64{0, 0.5, 1} {
				got := Resolve("some words", label, conf, norm)
				if !valid[got.Action] {
					t.Fatalf("Resolve(%q, %v, %v) produced unknown action %q", label, conf, norm, got.Action)
				}
			}
		}
	}
}
