package stencil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TokenType represents the type of a template token
type TokenType int

const (
	TokenText TokenType = iota
	TokenVariable
	TokenIf
	TokenElse
	TokenElsif
	TokenUnless
	TokenFor
	TokenWhile
	TokenEnd
	TokenInclude
	TokenComment
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "text"
	case TokenVariable:
		return "variable"
	case TokenIf:
		return "if"
	case TokenElse:
		return "else"
	case TokenElsif:
		return "elsif"
	case TokenUnless:
		return "unless"
	case TokenFor:
		return "for"
	case TokenWhile:
		return "while"
	case TokenEnd:
		return "end"
	case TokenInclude:
		return "include"
	case TokenComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Token represents a parsed template token. Line and Column mark its first
// character, EndLine and EndColumn its last; all are 1-based.
type Token struct {
	Type      TokenType
	Value     string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

var (
	// Regular expression to match template tokens
	tokenRegex = regexp.MustCompile(`\{\{([^}]*)\}\}`)
)

// Tokenize parses a template string into tokens
func Tokenize(input string) []Token {
	var tokens []Token
	lastEnd := 0
	pos := newPositionTracker(input)

	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.WithField("input_length", len(input)).Debug("Starting tokenization")
	}

	emit := func(tok Token, start, end int) {
		tok.Line, tok.Column = pos.at(start)
		_, size := utf8.DecodeLastRuneInString(input[:end])
		tok.EndLine, tok.EndColumn = pos.at(end - size)
		tokens = append(tokens, tok)
	}

	for _, match := range tokenRegex.FindAllStringSubmatchIndex(input, -1) {
		if match[0] > lastEnd {
			emit(Token{Type: TokenText, Value: input[lastEnd:match[0]]}, lastEnd, match[0])
		}

		content := strings.TrimSpace(input[match[2]:match[3]])
		if content == "" {
			// Empty tags are literal text
			emit(Token{Type: TokenText, Value: input[match[0]:match[1]]}, match[0], match[1])
		} else {
			token := parseToken(content)
			if logger.IsDebugMode() {
				logger.WithFields(Fields{
					"type":    token.Type.String(),
					"content": content,
				}).Debug("Found token")
			}
			emit(token, match[0], match[1])
		}
		lastEnd = match[1]
	}

	if lastEnd < len(input) {
		emit(Token{Type: TokenText, Value: input[lastEnd:]}, lastEnd, len(input))
	}

	if logger.IsDebugMode() {
		logger.WithField("token_count", len(tokens)).Debug("Tokenization complete")
	}
	return tokens
}

// parseToken determines the type of token from its content
func parseToken(content string) Token {
	if strings.HasPrefix(content, "#") {
		return Token{Type: TokenComment, Value: strings.TrimSpace(content[1:])}
	}

	keyword := strings.Fields(content)[0]
	rest := strings.TrimSpace(strings.TrimPrefix(content, keyword))

	switch keyword {
	case "if":
		return Token{Type: TokenIf, Value: rest}
	case "elsif", "elseif", "elif":
		return Token{Type: TokenElsif, Value: rest}
	case "else":
		return Token{Type: TokenElse}
	case "unless":
		return Token{Type: TokenUnless, Value: rest}
	case "for":
		return Token{Type: TokenFor, Value: rest}
	case "while":
		return Token{Type: TokenWhile, Value: rest}
	case "end":
		return Token{Type: TokenEnd}
	case "include":
		return Token{Type: TokenInclude, Value: rest}
	default:
		return Token{Type: TokenVariable, Value: content}
	}
}

// positionTracker maps byte offsets to 1-based line and column numbers.
// Columns count runes, not bytes.
type positionTracker struct {
	input      string
	lineStarts []int
}

func newPositionTracker(input string) *positionTracker {
	starts := []int{0}
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &positionTracker{input: input, lineStarts: starts}
}

func (p *positionTracker) at(offset int) (line, column int) {
	if offset < 0 {
		offset = 0
	}
	// Binary search for the last line start <= offset.
	lo, hi := 0, len(p.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if p.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	start := p.lineStarts[lo]
	return lo + 1, len([]rune(p.input[start:offset])) + 1
}

// FindTemplateTokens finds all template tokens in a string
// This is a utility function for debugging and analysis
func FindTemplateTokens(input string) []string {
	matches := tokenRegex.FindAllString(input, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}
