package intent

import (
	"fmt"
	"strings"
)

// defaultSamples bootstraps the corpus the first time the service runs
// against an empty database.
var defaultSamples = []Sample{
	{"equals", LabelCalculate},
	{"calculate", LabelCalculate},
	{"show result", LabelCalculate},
	{"what is the answer", LabelCalculate},
	{"finish the calculation", LabelCalculate},
	{"clear", LabelClear},
	{"clear everything", LabelClear},
	{"reset calculator", LabelClear},
	{"wipe it", LabelClear},
	{"backspace", LabelBackspace},
	{"delete last", LabelBackspace},
	{"remove the last digit", LabelBackspace},
	{"undo", LabelBackspace},
	{"stop listening", LabelStop},
	{"mic off", LabelStop},
	{"end voice control", LabelStop},
	{"don't listen", LabelStop},
	{"ignore this", LabelNoop},
	{"never mind", LabelNoop},
	{"random words", LabelNoop},
	{"one plus two", LabelExpression},
	{"seven times five", LabelExpression},
	{"twelve minus four", LabelExpression},
	{"thirty three divided by eleven", LabelExpression},
	{"open bracket three plus four close bracket", LabelExpression},
	{"nine point five plus two", LabelExpression},
	{"add six and eight", LabelExpression},
	{"subtract seven from nineteen", LabelExpression},
	{"multiply four by three", LabelExpression},
	{"divide twenty by five", LabelExpression},
	{"forty six plus seven whole multiply by four", LabelExpression},
	{"open bracket twelve minus five close bracket times nine", LabelExpression},
	{"sum of eight and four whole divide by two", LabelExpression},
	{"add five and nine then multiply by two", LabelExpression},
	{"modulus of nineteen and four", LabelExpression},
	{"twenty three mod five", LabelExpression},
	{"thirty six modulo eight", LabelExpression},
	{"remainder when fifty three is divided by six", LabelExpression},
	{"open parenthesis forty plus ten close parenthesis times three", LabelExpression},
	{"seventy two divided by open bracket eight minus two close bracket", LabelExpression},
}

// DefaultSamples returns a copy of the bootstrap corpus.
func DefaultSamples() []Sample {
	out := make([]Sample, len(defaultSamples))
	copy(out, defaultSamples)
	return out
}

var smallNumberWords = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight",
	"nine", "ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen",
	"sixteen", "seventeen", "eighteen", "nineteen",
}

var tensWords = map[int]string{
	20: "twenty", 30: "thirty", 40: "forty", 50: "fifty",
	60: "sixty", 70: "seventy", 80: "eighty", 90: "ninety",
}

// numberToWords spells a value the way a speaker would, up to 999.
func numberToWords(value int) string {
	switch {
	case value < 0:
		return "minus " + numberToWords(-value)
	case value < len(smallNumberWords):
		return smallNumberWords[value]
	case value < 100:
		tens := (value / 10) * 10
		rem := value % 10
		base, ok := tensWords[tens]
		if !ok {
			return fmt.Sprintf("%d", value)
		}
		if rem == 0 {
			return base
		}
		return base + " " + smallNumberWords[rem]
	case value < 1000:
		base := smallNumberWords[value/100] + " hundred"
		if rem := value % 100; rem != 0 {
			return base + " " + numberToWords(rem)
		}
		return base
	default:
		return fmt.Sprintf("%d", value)
	}
}

// SyntheticSamples generates the expression phrasing corpus the
// classifier is trained on alongside the curated samples: operator pairs,
// modulus phrasings, three-operand chains and bracketed groupings, both
// spelled out and in symbols.
func SyntheticSamples() []Sample {
	numbers := []int{
		3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 14, 15, 16, 18, 19, 20, 22, 24,
		25, 27, 30, 32, 36, 40, 42, 45, 48, 50, 54, 60, 64, 72, 84, 96,
	}
	modulusNumbers := []int{19, 23, 36, 53, 64, 75}
	tripleNumbers := numbers[:10]

	seen := make(map[string]struct{})
	var samples []Sample
	add := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		key := strings.ToLower(text)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		samples = append(samples, Sample{Text: text, Label: LabelExpression})
	}

	for _, a := range numbers {
		for _, b := range numbers {
			wa, wb := numberToWords(a), numberToWords(b)
			add(wa + " plus " + wb)
			add("add " + wa + " to " + wb)
			add("sum of " + wa + " and " + wb)
			add(wa + " minus " + wb)
			add("subtract " + wb + " from " + wa)
			add("take away " + wb + " from " + wa)
			add(wa + " times " + wb)
			add(wa + " multiply by " + wb)
			add("product of " + wa + " and " + wb)
			add(wa + " divided by " + wb)
			add("divide " + wa + " by " + wb)
			add(wa + " over " + wb)
			add(wa + " mod " + wb)
			add("modulus of " + wa + " and " + wb)
			add(fmt.Sprintf("%d + %d", a, b))
			add(fmt.Sprintf("%d - %d", a, b))
			add(fmt.Sprintf("%d * %d", a, b))
			add(fmt.Sprintf("%d / %d", a, b))
		}
	}

	for _, a := range modulusNumbers {
		for b := 2; b < 12; b++ {
			wa, wb := numberToWords(a), numberToWords(b)
			add("remainder when " + wa + " is divided by " + wb)
			add("what's the remainder if " + wa + " is divided by " + wb)
			add(fmt.Sprintf("%d %% %d", a, b))
		}
	}

	for _, a := range tripleNumbers {
		for _, b := range tripleNumbers {
			for _, c := range tripleNumbers {
				wa, wb, wc := numberToWords(a), numberToWords(b), numberToWords(c)
				add(wa + " plus " + wb + " minus " + wc)
				add(wa + " plus " + wb + " times " + wc)
				add(wa + " minus " + wb + " divided by " + wc)
				add("open bracket " + wa + " plus " + wb + " close bracket times " + wc)
				add("open bracket " + wa + " minus " + wb + " close bracket divided by " + wc)
				add(fmt.Sprintf("%d + %d - %d", a, b, c))
				add(fmt.Sprintf("(%d + %d) * %d", a, b, c))
				add(fmt.Sprintf("(%d - %d) / %d", a, b, c))
				add(wa + " plus " + wb + " whole divide by " + wc)
				add(wa + " plus " + wb + " whole multiply by " + wc)
			}
		}
	}

	for _, a := range numbers[:12] {
		for _, b := range numbers[:12] {
			for _, c := range numbers[:12] {
				wa, wb, wc := numberToWords(a), numberToWords(b), numberToWords(c)
				add("open parenthesis " + wa + " plus " + wb + " close parenthesis times " + wc)
				add(wa + " plus open bracket " + wb + " times " + wc + " close bracket")
			}
		}
	}

	return samples
}

// MergeSamples deduplicates samples by lower-cased text; earlier slices
// win, so curated records override synthetic ones.
func MergeSamples(groups ...[]Sample) []Sample {
	seen := make(map[string]struct{})
	var merged []Sample
	for _, group := range groups {
		for _, s := range group {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			key := strings.ToLower(text)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, Sample{Text: text, Label: s.Label})
		}
	}
	return merged
}
