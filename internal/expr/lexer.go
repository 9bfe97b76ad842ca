package expr

import (
	"regexp"
	"strconv"
	"strings"
)

// reorderPattern rewrites a spoken construction whose word order differs
// from the written expression ("subtract A from B" reads B-A). These run
// before the plain synonym replacements: the synonyms would otherwise
// destroy the anchor words the patterns match on.
type reorderPattern struct {
	re   *regexp.Regexp
	repl string
}

var reorderPatterns = []reorderPattern{
	{regexp.MustCompile(`remainder when ([a-z0-9 ]+?) is divided by ([a-z0-9 ]+)`), "$1 mod $2"},
	{regexp.MustCompile(`what's the remainder if ([a-z0-9 ]+?) is divided by ([a-z0-9 ]+)`), "$1 mod $2"},
	{regexp.MustCompile(`subtract ([a-z0-9 ]+?) from ([a-z0-9 ]+)`), "$2 minus $1"},
	{regexp.MustCompile(`take away ([a-z0-9 ]+?) from ([a-z0-9 ]+)`), "$2 minus $1"},
	{regexp.MustCompile(`add ([a-z0-9 ]+?) to ([a-z0-9 ]+)`), "$2 plus $1"},
	{regexp.MustCompile(`sum of ([a-z0-9 ]+?) and ([a-z0-9 ]+)`), "$1 plus $2"},
	{regexp.MustCompile(`difference between ([a-z0-9 ]+?) and ([a-z0-9 ]+)`), "$1 minus $2"},
}

// phraseReplacement collapses a multi-word operator phrase into its
// canonical single-word form. Applied in order; longer phrases come first
// so their shorter suffixes cannot fire early.
type phraseReplacement struct {
	phrase string
	repl   string
}

var phraseReplacements = []phraseReplacement{
	{"whole multiplied by", "whole multiply"},
	{"whole multiply by", "whole multiply"},
	{"whole divided by", "whole divide"},
	{"to the power of", "power"},
	{"raised to", "power"},
	{"multiplied with", "multiply"},
	{"multiplied by", "multiply"},
	{"multiply with", "multiply"},
	{"multiply by", "multiply"},
	{"times by", "multiply"},
	{"divided into", "divide"},
	{"divided by", "divide"},
	{"divide by", "divide"},
	{"left bracket", "open bracket"},
	{"left parenthesis", "open parenthesis"},
	{"right bracket", "close bracket"},
	{"right parenthesis", "close parenthesis"},
}

// tokenPattern splits the rewritten transcript into maximal letter runs,
// maximal digit runs and single symbol characters. Everything else is
// dropped.
var tokenPattern = regexp.MustCompile(`[a-z]+|[0-9]+|[+\-*/()=%]`)

// Tokenize converts a raw transcript into an ordered token sequence. It is
// pure and never fails: text it does not recognize degrades to plain word
// tokens.
func Tokenize(transcript string) []Token {
	cleaned := strings.ToLower(strings.TrimSpace(transcript))
	if cleaned == "" {
		return nil
	}

	for _, p := range reorderPatterns {
		cleaned = p.re.ReplaceAllString(cleaned, p.repl)
	}
	for _, p := range phraseReplacements {
		cleaned = strings.ReplaceAll(cleaned, p.phrase, p.repl)
	}

	lexemes := tokenPattern.FindAllString(cleaned, -1)
	tokens := make([]Token, 0, len(lexemes))
	for _, lex := range lexemes {
		switch {
		case lex[0] >= '0' && lex[0] <= '9':
			value, err := strconv.Atoi(lex)
			if err != nil {
				// Absurdly long digit runs overflow; treat them as noise.
				tokens = append(tokens, Word(lex))
				continue
			}
			tokens = append(tokens, Number(lex, value))
		case len(lex) == 1 && !isLetter(lex[0]):
			tokens = append(tokens, Symbol(lex[0]))
		default:
			tokens = append(tokens, Word(lex))
		}
	}
	return tokens
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' }
