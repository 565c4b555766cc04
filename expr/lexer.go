package expr

import "fmt"

// tokenType identifies a lexer token.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenNumber
	tokenIdent
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenCaret // ^ or **
	tokenLParen
	tokenRParen
	tokenComma
	tokenLT
	tokenGT
	tokenLE
	tokenGE
	tokenEQ
	tokenNE
)

// token is a single lexed token.
type token struct {
	typ tokenType
	lit string
	pos int
}

func (t token) String() string {
	return fmt.Sprintf("token{%d, %q, %d}", t.typ, t.lit, t.pos)
}

// lexer tokenizes expression input.
type lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
}

func newLexer(input string) *lexer {
	l := &lexer{input: input}
	l.readChar()
	return l
}

func (l *lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// next returns the next token from the input.
func (l *lexer) next() (token, error) {
	l.skipWhitespace()

	pos := l.pos
	switch l.ch {
	case 0:
		return token{tokenEOF, "", pos}, nil
	case '+':
		l.readChar()
		return token{tokenPlus, "+", pos}, nil
	case '-':
		l.readChar()
		return token{tokenMinus, "-", pos}, nil
	case '*':
		if l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			return token{tokenCaret, "**", pos}, nil
		}
		l.readChar()
		return token{tokenStar, "*", pos}, nil
	case '/':
		l.readChar()
		return token{tokenSlash, "/", pos}, nil
	case '^':
		l.readChar()
		return token{tokenCaret, "^", pos}, nil
	case '(':
		l.readChar()
		return token{tokenLParen, "(", pos}, nil
	case ')':
		l.readChar()
		return token{tokenRParen, ")", pos}, nil
	case ',':
		l.readChar()
		return token{tokenComma, ",", pos}, nil
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token{tokenLE, "<=", pos}, nil
		}
		l.readChar()
		return token{tokenLT, "<", pos}, nil
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token{tokenGE, ">=", pos}, nil
		}
		l.readChar()
		return token{tokenGT, ">", pos}, nil
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token{tokenEQ, "==", pos}, nil
		}
		return token{}, fmt.Errorf("unexpected '=' at position %d", pos)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token{tokenNE, "!=", pos}, nil
		}
		return token{}, fmt.Errorf("unexpected '!' at position %d", pos)
	}

	if isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())) {
		return token{tokenNumber, l.readNumber(), pos}, nil
	}
	if isIdentStart(l.ch) {
		return token{tokenIdent, l.readIdent(), pos}, nil
	}
	return token{}, fmt.Errorf("unexpected character %q at position %d", l.ch, pos)
}

func (l *lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	// Scientific notation: 1e-3, 2.5E+10
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[start:l.pos]
}

func (l *lexer) readIdent() string {
	start := l.pos
	for isIdentStart(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
