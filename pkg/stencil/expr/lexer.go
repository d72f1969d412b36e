// Package expr implements the expression language used inside {{ }} tags:
// literals, variables, field and index access, function calls, and the usual
// arithmetic, comparison and logical operators.
package expr

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType is the kind of an expression token.
type TokenType int

const (
	TokenIdentifier TokenType = iota
	TokenNumber
	TokenString
	TokenOperator
	TokenLeftParen
	TokenRightParen
	TokenComma
	TokenEOF
)

// Token is one lexeme of an expression. Pos is the byte offset in the source.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// operators, longest first so that "<=" wins over "<".
var operators = []string{"&&", "||", "==", "!=", "<=", ">=", "+", "-", "*", "/", "%", "<", ">", "!", ".", "[", "]", "&", "|"}

// Tokenize splits an expression into tokens, terminated by a TokenEOF.
func Tokenize(src string) ([]Token, error) {
	var tokens []Token
	pos := 0
	for pos < len(src) {
		r, size := utf8.DecodeRuneInString(src[pos:])
		switch {
		case unicode.IsSpace(r):
			pos += size

		case r == '_' || unicode.IsLetter(r):
			end := pos + size
			for end < len(src) {
				r2, s2 := utf8.DecodeRuneInString(src[end:])
				if r2 != '_' && !unicode.IsLetter(r2) && !unicode.IsDigit(r2) {
					break
				}
				end += s2
			}
			tokens = append(tokens, Token{Type: TokenIdentifier, Value: src[pos:end], Pos: pos})
			pos = end

		case isDigit(r) || (r == '.' && pos+1 < len(src) && isDigit(rune(src[pos+1]))):
			end := pos
			seenDot := false
			for end < len(src) && (isDigit(rune(src[end])) || (src[end] == '.' && !seenDot && end+1 < len(src) && isDigit(rune(src[end+1])))) {
				if src[end] == '.' {
					seenDot = true
				}
				end++
			}
			value := src[pos:end]
			if strings.HasPrefix(value, ".") {
				value = "0" + value
			}
			tokens = append(tokens, Token{Type: TokenNumber, Value: value, Pos: pos})
			pos = end

		case r == '"' || r == '\'':
			value, n, err := scanString(src[pos:], byte(r))
			if err != nil {
				return nil, fmt.Errorf("%w at position %d", err, pos)
			}
			tokens = append(tokens, Token{Type: TokenString, Value: value, Pos: pos})
			pos += n

		case r == '(':
			tokens = append(tokens, Token{Type: TokenLeftParen, Value: "(", Pos: pos})
			pos++
		case r == ')':
			tokens = append(tokens, Token{Type: TokenRightParen, Value: ")", Pos: pos})
			pos++
		case r == ',':
			tokens = append(tokens, Token{Type: TokenComma, Value: ",", Pos: pos})
			pos++

		default:
			op := matchOperator(src[pos:])
			if op == "" {
				return nil, fmt.Errorf("unexpected character %q at position %d", r, pos)
			}
			tokens = append(tokens, Token{Type: TokenOperator, Value: op, Pos: pos})
			pos += len(op)
		}
	}
	tokens = append(tokens, Token{Type: TokenEOF, Pos: pos})
	return tokens, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func matchOperator(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

// scanString reads a quoted string starting at s[0] and returns its unescaped
// value and the number of bytes consumed.
func scanString(s string, quote byte) (string, int, error) {
	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(s[i])
			}
		case c == quote:
			return sb.String(), i + 1, nil
		default:
			sb.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string literal")
}
