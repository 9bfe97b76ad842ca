package intent

import (
	"testing"
)

func trainDefault(t *testing.T) *Model {
	t.Helper()
	m, err := Train(DefaultSamples())
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	return m
}

func TestTrainRequiresSamples(t *testing.T) {
	if _, err := Train(nil); err != ErrNoSamples {
		t.Errorf("Train(nil) error = %v, want ErrNoSamples", err)
	}
	// Samples with invalid labels or empty text do not count.
	_, err := Train([]Sample{{"", LabelClear}, {"hello", "bogus"}})
	if err != ErrNoSamples {
		t.Errorf("Train(invalid) error = %v, want ErrNoSamples", err)
	}
}

func TestClassifyKnownPhrases(t *testing.T) {
	m := trainDefault(t)

	tests := []struct {
		text string
		want string
	}{
		{"clear everything", LabelClear},
		{"reset calculator", LabelClear},
		{"delete last", LabelBackspace},
		{"stop listening", LabelStop},
		{"seven times five", LabelExpression},
		{"twelve minus four", LabelExpression},
		{"show result", LabelCalculate},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			label, confidence := m.Classify(tt.text)
			if label != tt.want {
				t.Errorf("Classify(%q) = %q (conf %.3f), want %q", tt.text, label, confidence, tt.want)
			}
			if confidence <= 0 || confidence > 1 {
				t.Errorf("confidence %v out of range", confidence)
			}
		})
	}
}

func TestClassifyEmpty(t *testing.T) {
	m := trainDefault(t)
	label, confidence := m.Classify("   ")
	if label != LabelNoop || confidence != 0 {
		t.Errorf("Classify(blank) = %q, %v; want noop, 0", label, confidence)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	m := trainDefault(t)
	for i := 0; i < 10; i++ {
		label, confidence := m.Classify("open bracket three plus four close bracket")
		label2, confidence2 := m.Classify("open bracket three plus four close bracket")
		if label != label2 || confidence != confidence2 {
			t.Fatalf("classification not deterministic: (%q,%v) vs (%q,%v)", label, confidence, label2, confidence2)
		}
	}
}

func TestBuildModelIncludesSynthetic(t *testing.T) {
	m, err := BuildModel(DefaultSamples())
	if err != nil {
		t.Fatalf("BuildModel failed: %v", err)
	}

	// Phrasings only present in the synthetic corpus.
	for _, text := range []string{
		"ninety six plus eighty four",
		"product of twenty two and fourteen",
		"what's the remainder if seventy five is divided by nine",
	} {
		label, _ := m.Classify(text)
		if label != LabelExpression {
			t.Errorf("Classify(%q) = %q, want expression", text, label)
		}
	}
}

func TestInterpreterSwap(t *testing.T) {
	m := trainDefault(t)
	in := NewInterpreter(m)

	got := in.Interpret("seven times five")
	if got.Action != ActionAppendExpression {
		t.Fatalf("action = %q, want append_expression", got.Action)
	}
	if got.Expression == nil || *got.Expression != "7*5" {
		t.Fatalf("expression = %v, want 7*5", got.Expression)
	}

	// Retrain with a corpus that maps everything to stop; the swap must
	// take effect for subsequent calls.
	stopOnly, err := Train([]Sample{{"anything at all", LabelStop}, {"whatever else", LabelStop}})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	in.Swap(stopOnly)

	label, _ := in.Classify("anything at all")
	if label != LabelStop {
		t.Errorf("after swap Classify = %q, want stop", label)
	}
}
