package bpl

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType defines the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenInt
	TokenBv
	TokenString
	TokenKeyword
	TokenPunct
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "Ident"
	case TokenInt:
		return "Int"
	case TokenBv:
		return "Bv"
	case TokenString:
		return "String"
	case TokenKeyword:
		return "Keyword"
	case TokenPunct:
		return "Punct"
	default:
		return "Unknown"
	}
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
	Pos   Pos
}

var keywords = map[string]bool{
	"type":           true,
	"const":          true,
	"unique":         true,
	"var":            true,
	"function":       true,
	"procedure":      true,
	"implementation": true,
	"returns":        true,
	"modifies":       true,
	"requires":       true,
	"ensures":        true,
	"free":           true,
	"assert":         true,
	"assume":         true,
	"havoc":          true,
	"call":           true,
	"goto":           true,
	"return":         true,
	"if":             true,
	"then":           true,
	"else":           true,
	"true":           true,
	"false":          true,
	"div":            true,
	"mod":            true,
}

// punctuators, longest first so that the greedy match is correct.
var punctuators = []string{
	"<==>", "==>", ":=", "==", "!=", "<=", ">=", "&&", "||",
	"{:", "(", ")", "[", "]", "{", "}", ",", ";", ":", "<", ">",
	"+", "-", "*", "!",
}

// Lex performs lexical analysis on the input string
// and returns a sequence of tokens terminated by TokenEOF.
func Lex(input string) ([]Token, error) {
	var tokens []Token
	line, col := 1, 1
	i := 0

	advance := func(n int) {
		for k := 0; k < n; k++ {
			if input[i] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
			i++
		}
	}

	for i < len(input) {
		c := input[i]

		if isWhitespace(c) {
			advance(1)
			continue
		}

		// comments
		if strings.HasPrefix(input[i:], "//") {
			for i < len(input) && input[i] != '\n' {
				advance(1)
			}
			continue
		}
		if strings.HasPrefix(input[i:], "/*") {
			start := Pos{Line: line, Col: col}
			end := strings.Index(input[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("line %d col %d: comment is not terminated", start.Line, start.Col)
			}
			advance(end + 4)
			continue
		}

		pos := Pos{Line: line, Col: col}

		if c == '"' {
			j := i + 1
			for j < len(input) && input[j] != '"' && input[j] != '\n' {
				j++
			}
			if j >= len(input) || input[j] != '"' {
				return nil, fmt.Errorf("line %d col %d: string literal is not terminated", pos.Line, pos.Col)
			}
			tokens = append(tokens, Token{Type: TokenString, Value: input[i : j+1], Pos: pos})
			advance(j + 1 - i)
			continue
		}

		if isDigit(c) {
			j := i
			for j < len(input) && isDigit(input[j]) {
				j++
			}
			// bitvector literal: 5bv32
			if strings.HasPrefix(input[j:], "bv") && j+2 < len(input) && isDigit(input[j+2]) {
				k := j + 2
				for k < len(input) && isDigit(input[k]) {
					k++
				}
				tokens = append(tokens, Token{Type: TokenBv, Value: input[i:k], Pos: pos})
				advance(k - i)
				continue
			}
			tokens = append(tokens, Token{Type: TokenInt, Value: input[i:j], Pos: pos})
			advance(j - i)
			continue
		}

		if isIdentifierStart(c) {
			j := i + 1
			for j < len(input) && isIdentifierChar(input[j]) {
				j++
			}
			word := input[i:j]
			typ := TokenIdent
			if keywords[word] {
				typ = TokenKeyword
			}
			tokens = append(tokens, Token{Type: typ, Value: word, Pos: pos})
			advance(j - i)
			continue
		}

		matched := false
		for _, p := range punctuators {
			if strings.HasPrefix(input[i:], p) {
				tokens = append(tokens, Token{Type: TokenPunct, Value: p, Pos: pos})
				advance(len(p))
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("line %d col %d: unexpected character %q", pos.Line, pos.Col, c)
		}
	}

	tokens = append(tokens, Token{Type: TokenEOF, Pos: Pos{Line: line, Col: col}})
	return tokens, nil
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// identifiers may carry the special characters used by lifted traces
// and by namespace prefixes (e.g. v2.rax, $t#1).
func isIdentifierStart(c byte) bool {
	return unicode.IsLetter(rune(c)) || strings.IndexByte("_.$#'~^?`\\", c) >= 0
}

func isIdentifierChar(c byte) bool {
	return isIdentifierStart(c) || isDigit(c)
}
