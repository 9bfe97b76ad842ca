package expr

import (
	"regexp"
	"strconv"
	"strings"
)

// Normalized is the output of the expression normalizer: a sanitized
// calculator expression and the share of input tokens that matched a
// known rule. Text may be empty while Confidence is still meaningful.
type Normalized struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// numberWords maps spoken number words to their value. "hundred" is a
// multiplier and gets special treatment in the accumulator.
var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
	"hundred": 100,
}

var operatorWords = map[string]byte{
	"plus": '+', "add": '+', "sum": '+',
	"minus": '-', "subtract": '-', "negative": '-',
	"times": '*', "x": '*', "into": '*', "multiply": '*', "multiplied": '*',
	"divide": '/', "divided": '/', "over": '/', "slash": '/',
	"percent": '%', "mod": '%', "modulo": '%', "modulus": '%', "remainder": '%',
}

// specialWords covers decimal points, equals, and the bracket direction
// qualifiers. Openers emit immediately; closers emit nothing themselves
// and instead qualify a following bracket word.
var specialWords = map[string]string{
	"point": ".", "dot": ".", "decimal": ".", "comma": ".",
	"open": "(", "opening": "(", "left": "(",
	"close": "", "closing": "", "right": "",
	"equals": "=", "equal": "=", "is": "=",
}

var bracketWords = map[string]bool{
	"bracket": true, "parenthesis": true, "parentheses": true,
}

var openQualifiers = map[string]bool{"open": true, "opening": true, "left": true}
var closeQualifiers = map[string]bool{"close": true, "closing": true, "right": true}

var wrapWords = map[string]bool{"whole": true, "entire": true, "all": true}

// fillerWords are connectives consumed silently. They still count as
// matched tokens for the confidence score; that overstates confidence for
// filler-heavy input, but the scoring is kept as-is on purpose.
var fillerWords = map[string]bool{
	"by": true, "of": true, "the": true, "a": true, "an": true,
	"and": true, "then": true, "from": true, "to": true, "with": true,
	"is": true, "are": true, "was": true, "were": true,
	"be": true, "being": true, "been": true, "into": true, "per": true,
}

// normalizer holds the single-pass state. The zero value is ready to use.
type normalizer struct {
	out     []string
	matched int

	pending     byte // buffered operator waiting for its left operand
	wrapPending bool // next operator wraps the built prefix in parens

	numVal   int // accumulated value of consecutive number words
	numCount int // how many number words are buffered
}

// rule is one branch of the token classifier. Rules are tried in slice
// order and the first match wins, so the priority between overlapping
// vocabularies ("is" is both filler and equals-word) is explicit rather
// than an artifact of map iteration.
type rule struct {
	name  string
	match func(tok Token) bool
	apply func(n *normalizer, tokens []Token, i int)
}

var rules = []rule{
	{
		// Buffered rather than emitted; the main loop routes matches of
		// this rule into the number-word accumulator.
		name:  "number-word",
		match: func(tok Token) bool { _, ok := numberWords[tok.Text]; return ok && tok.Kind == TokenWord },
	},
	{
		name:  "filler",
		match: func(tok Token) bool { return tok.Kind == TokenWord && fillerWords[tok.Text] },
		apply: func(n *normalizer, _ []Token, _ int) { n.matched++ },
	},
	{
		name:  "wrap",
		match: func(tok Token) bool { return tok.Kind == TokenWord && wrapWords[tok.Text] },
		apply: func(n *normalizer, _ []Token, _ int) {
			n.wrapPending = true
			n.matched++
		},
	},
	{
		name: "operator",
		match: func(tok Token) bool {
			if tok.Kind == TokenOperator {
				return true
			}
			_, ok := operatorWords[tok.Text]
			return tok.Kind == TokenWord && ok
		},
		apply: func(n *normalizer, tokens []Token, i int) {
			sym := tokens[i].Text[0]
			if tokens[i].Kind == TokenWord {
				sym = operatorWords[tokens[i].Text]
			}
			n.emitOperator(sym)
		},
	},
	{
		name:  "bracket-symbol",
		match: func(tok Token) bool { return tok.Kind == TokenBracket },
		apply: func(n *normalizer, tokens []Token, i int) {
			n.emit(tokens[i].Text)
			n.matched++
		},
	},
	{
		name:  "bracket-word",
		match: func(tok Token) bool { return tok.Kind == TokenWord && bracketWords[tok.Text] },
		apply: func(n *normalizer, tokens []Token, i int) {
			prev := ""
			if i > 0 && tokens[i-1].Kind == TokenWord {
				prev = tokens[i-1].Text
			}
			switch {
			case openQualifiers[prev]:
				// The qualifier already emitted the opener.
			case closeQualifiers[prev]:
				n.emit(")")
			default:
				n.emit("(")
			}
			n.matched++
		},
	},
	{
		name: "special-word",
		match: func(tok Token) bool {
			_, ok := specialWords[tok.Text]
			return tok.Kind == TokenWord && ok
		},
		apply: func(n *normalizer, tokens []Token, i int) {
			if mapped := specialWords[tokens[i].Text]; mapped != "" {
				n.emit(mapped)
			}
			n.matched++
		},
	},
	{
		name:  "digits",
		match: func(tok Token) bool { return tok.Kind == TokenNumber },
		apply: func(n *normalizer, tokens []Token, i int) {
			n.emit(tokens[i].Text)
			n.matched++
			n.flushPendingOperator()
		},
	},
	{
		name:  "special-symbol",
		match: func(tok Token) bool { return tok.Kind == TokenSpecial },
		apply: func(n *normalizer, tokens []Token, i int) {
			n.emit(tokens[i].Text)
			n.matched++
		},
	},
}

// Normalize converts a token sequence into a calculator expression with a
// match confidence. It is deterministic, single pass and never fails:
// unparseable input yields an empty Text with whatever confidence the
// matched tokens earned.
func Normalize(tokens []Token) Normalized {
	if len(tokens) == 0 {
		return Normalized{}
	}

	n := &normalizer{}
	for i, tok := range tokens {
		r := matchRule(tok)
		if r == nil {
			// Unknown word: a number-word run cannot continue through it.
			n.flushNumber()
			continue
		}
		if r.name == "number-word" {
			n.bufferNumberWord(numberWords[tok.Text])
			continue
		}
		n.flushNumber()
		r.apply(n, tokens, i)
	}
	n.flushNumber()

	confidence := float64(n.matched) / float64(len(tokens))
	if confidence > 1 {
		confidence = 1
	}
	return Normalized{
		Text:       sanitize(strings.Join(n.out, "")),
		Confidence: confidence,
	}
}

func matchRule(tok Token) *rule {
	for i := range rules {
		if rules[i].match(tok) {
			return &rules[i]
		}
	}
	return nil
}

func (n *normalizer) emit(s string) { n.out = append(n.out, s) }

func (n *normalizer) lastChar() byte {
	if len(n.out) == 0 {
		return 0
	}
	last := n.out[len(n.out)-1]
	return last[len(last)-1]
}

func (n *normalizer) firstChar() byte {
	if len(n.out) == 0 {
		return 0
	}
	return n.out[0][0]
}

func isOperatorChar(c byte) bool {
	switch c {
	case '+', '-', '*', '/', '%':
		return true
	}
	return false
}

// emitOperator appends an operator symbol, buffering it when there is no
// left operand yet and applying a pending whole-expression wrap first.
func (n *normalizer) emitOperator(sym byte) {
	if len(n.out) == 0 || isOperatorChar(n.lastChar()) {
		n.pending = sym
		n.matched++
		return
	}
	if n.wrapPending {
		if n.firstChar() != '(' {
			n.out = append([]string{"("}, n.out...)
		}
		if n.lastChar() != ')' {
			n.emit(")")
		}
		n.wrapPending = false
	}
	n.emit(string(sym))
	n.matched++
}

func (n *normalizer) flushPendingOperator() {
	if n.pending != 0 {
		n.emit(string(n.pending))
		n.pending = 0
	}
}

// bufferNumberWord accumulates one spoken number word. Ones and tens add;
// "hundred" multiplies whatever has accumulated, defaulting to one.
func (n *normalizer) bufferNumberWord(value int) {
	if value == 100 {
		if n.numVal == 0 {
			n.numVal = 1
		}
		n.numVal *= 100
	} else {
		n.numVal += value
	}
	n.numCount++
}

// flushNumber emits the buffered number-word run, if any. A pending
// operator is flushed after the number, so with no left operand it ends
// up trailing and sanitize strips it ("times nine" reduces to "9").
func (n *normalizer) flushNumber() {
	if n.numCount == 0 {
		return
	}
	n.emit(strconv.Itoa(n.numVal))
	n.matched += n.numCount
	n.numVal = 0
	n.numCount = 0
	n.flushPendingOperator()
}

var (
	disallowedChars = regexp.MustCompile(`[^0-9+\-*/().%]`)
	operatorRuns    = regexp.MustCompile(`([+\-*/%])[+\-*/%]+`)
	dotRuns         = regexp.MustCompile(`\.{2,}`)
)

// sanitize enforces the output character set: strip anything outside it,
// collapse operator and decimal-point runs, and drop a trailing dangling
// operator.
func sanitize(s string) string {
	s = disallowedChars.ReplaceAllString(s, "")
	s = operatorRuns.ReplaceAllString(s, "$1")
	s = dotRuns.ReplaceAllString(s, ".")
	return strings.TrimRight(s, "+-*/%")
}
