package expr

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	// TokenWord is a run of letters that the lexer could not type further.
	TokenWord TokenKind = iota
	// TokenNumber is a run of decimal digits.
	TokenNumber
	// TokenOperator is one of the symbols + - * / %.
	TokenOperator
	// TokenBracket is a literal ( or ).
	TokenBracket
	// TokenSpecial is a literal . or =.
	TokenSpecial
)

// Token is a single typed unit produced by the lexer. Tokens are values:
// they are created in transcript order and never mutated afterwards.
type Token struct {
	Kind  TokenKind
	Text  string // the lexeme, lower-cased
	Value int    // parsed integer, set only for TokenNumber
}

// Word returns a word token.
func Word(s string) Token { return Token{Kind: TokenWord, Text: s} }

// Number returns a number token for the given digit run.
func Number(text string, value int) Token {
	return Token{Kind: TokenNumber, Text: text, Value: value}
}

// Symbol returns an operator, bracket or special token for a single
// symbol character.
func Symbol(c byte) Token {
	text := string(c)
	switch c {
	case '+', '-', '*', '/', '%':
		return Token{Kind: TokenOperator, Text: text}
	case '(', ')':
		return Token{Kind: TokenBracket, Text: text}
	default:
		return Token{Kind: TokenSpecial, Text: text}
	}
}
