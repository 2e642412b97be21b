package parse

import (
	"strings"
	"unicode/utf8"

	"github.com/phobologic/asn1ir/internal/cst"
	"github.com/phobologic/asn1ir/internal/diag"
)

// reserved holds the notation's reserved words plus the legacy ANY / DEFINED
// pair. Everything else that starts with an upper-case letter is a type
// reference.
var reserved = map[string]bool{
	"ABSENT": true, "ABSTRACT-SYNTAX": true, "ALL": true, "ANY": true,
	"APPLICATION": true, "AUTOMATIC": true, "BEGIN": true, "BIT": true,
	"BMPString": true, "BOOLEAN": true, "BY": true, "CHARACTER": true,
	"CHOICE": true, "CLASS": true, "COMPONENT": true, "COMPONENTS": true,
	"CONSTRAINED": true, "CONTAINING": true, "DATE": true, "DATE-TIME": true,
	"DEFAULT": true, "DEFINED": true, "DEFINITIONS": true, "DURATION": true,
	"EMBEDDED": true, "ENCODED": true, "ENCODING-CONTROL": true, "END": true,
	"ENUMERATED": true, "EXCEPT": true, "EXPLICIT": true, "EXPORTS": true,
	"EXTENSIBILITY": true, "EXTERNAL": true, "FALSE": true, "FROM": true,
	"GeneralizedTime": true, "GeneralString": true, "GraphicString": true,
	"IA5String": true, "IDENTIFIER": true, "IMPLICIT": true, "IMPLIED": true,
	"IMPORTS": true, "INCLUDES": true, "INSTANCE": true, "INSTRUCTIONS": true,
	"INTEGER": true, "INTERSECTION": true, "ISO646String": true, "MAX": true,
	"MIN": true, "MINUS-INFINITY": true, "NOT-A-NUMBER": true, "NULL": true,
	"NumericString": true, "OBJECT": true, "ObjectDescriptor": true,
	"OCTET": true, "OF": true, "OID-IRI": true, "OPTIONAL": true,
	"PATTERN": true, "PDV": true, "PLUS-INFINITY": true, "PRESENT": true,
	"PrintableString": true, "PRIVATE": true, "REAL": true,
	"RELATIVE-OID": true, "RELATIVE-OID-IRI": true, "SEQUENCE": true, "SET": true,
	"SETTINGS": true, "SIZE": true, "STRING": true, "SYNTAX": true,
	"T61String": true, "TAGS": true, "TeletexString": true, "TIME": true,
	"TIME-OF-DAY": true, "TRUE": true, "TYPE-IDENTIFIER": true, "UNION": true,
	"UNIQUE": true, "UNIVERSAL": true, "UniversalString": true,
	"UTCTime": true, "UTF8String": true, "VideotexString": true,
	"VisibleString": true, "WITH": true,
}

// symbols is ordered longest first so that the scanner is greedy.
var symbols = []string{
	"::=", "...", "..", "[[", "]]",
	"{", "}", "(", ")", "[", "]", ",", ";", ".", ":", "|", "^", "!",
	"<", ">", "@", "-", "+", "*", "/", "=", "\"", "'",
}

// IsReserved reports whether word is a reserved word.
func IsReserved(word string) bool { return reserved[word] }

type lexer struct {
	file string
	src  string
	off  int
	line int
	col  int
}

// Tokens splits src into tokens. The returned slice always ends with a
// TokEOF token. The error, if any, is a *diag.ParseError.
func Tokens(file string, src []byte) ([]cst.Token, error) {
	lx := &lexer{file: file, src: string(src), line: 1, col: 1}
	var toks []cst.Token
	for {
		if err := lx.skipSpace(); err != nil {
			return nil, err
		}
		if lx.off >= len(lx.src) {
			toks = append(toks, cst.Token{Kind: cst.TokEOF, Pos: lx.pos()})
			return toks, nil
		}
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
	}
}

func (lx *lexer) pos() diag.Pos {
	return diag.Pos{File: lx.file, Line: lx.line, Column: lx.col}
}

func (lx *lexer) errorf(p diag.Pos, found string, expected ...string) error {
	return &diag.ParseError{File: p.File, Line: p.Line, Column: p.Column, Expected: expected, Found: found}
}

func (lx *lexer) peekByte(ahead int) byte {
	if lx.off+ahead < len(lx.src) {
		return lx.src[lx.off+ahead]
	}
	return 0
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n && lx.off < len(lx.src); i++ {
		if lx.src[lx.off] == '\n' {
			lx.line++
			lx.col = 1
		} else if lx.src[lx.off]&0xC0 != 0x80 {
			lx.col++
		}
		lx.off++
	}
}

func (lx *lexer) skipSpace() error {
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			lx.advance(1)
		case c == '-' && lx.peekByte(1) == '-':
			lx.skipLineComment()
		case c == '/' && lx.peekByte(1) == '*':
			if err := lx.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

// skipLineComment consumes a "--" comment, which ends at a newline or at the
// next "--".
func (lx *lexer) skipLineComment() {
	lx.advance(2)
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		if c == '\n' {
			return
		}
		if c == '-' && lx.peekByte(1) == '-' {
			lx.advance(2)
			return
		}
		lx.advance(1)
	}
}

func (lx *lexer) skipBlockComment() error {
	start := lx.pos()
	depth := 0
	for lx.off < len(lx.src) {
		switch {
		case lx.src[lx.off] == '/' && lx.peekByte(1) == '*':
			depth++
			lx.advance(2)
		case lx.src[lx.off] == '*' && lx.peekByte(1) == '/':
			depth--
			lx.advance(2)
			if depth == 0 {
				return nil
			}
		default:
			lx.advance(1)
		}
	}
	return lx.errorf(start, "unterminated comment", `"*/"`)
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }

func (lx *lexer) next() (cst.Token, error) {
	p := lx.pos()
	c := lx.src[lx.off]
	switch {
	case isLetter(c):
		word := lx.word()
		kind := cst.TokValueRef
		if c >= 'A' && c <= 'Z' {
			kind = cst.TokTypeRef
			if reserved[word] {
				kind = cst.TokKeyword
			}
		}
		return cst.Token{Kind: kind, Text: word, Pos: p}, nil
	case c == '&' && isLetter(lx.peekByte(1)):
		lx.advance(1)
		word := lx.word()
		kind := cst.TokValueField
		if word[0] >= 'A' && word[0] <= 'Z' {
			kind = cst.TokTypeField
		}
		return cst.Token{Kind: kind, Text: "&" + word, Pos: p}, nil
	case isDigit(c):
		return lx.number(p), nil
	case c == '"':
		return lx.cstring(p)
	case c == '\'':
		return lx.bhstring(p)
	}
	for _, s := range symbols {
		if strings.HasPrefix(lx.src[lx.off:], s) {
			lx.advance(len(s))
			return cst.Token{Kind: cst.TokSymbol, Text: s, Pos: p}, nil
		}
	}
	r, _ := utf8.DecodeRuneInString(lx.src[lx.off:])
	return cst.Token{}, lx.errorf(p, "character "+quoteRune(r))
}

// word scans letters, digits and single hyphens. A hyphen may not end a word
// or be doubled, since "--" opens a comment.
func (lx *lexer) word() string {
	start := lx.off
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		if isLetter(c) || isDigit(c) {
			lx.advance(1)
			continue
		}
		if c == '-' && (isLetter(lx.peekByte(1)) || isDigit(lx.peekByte(1))) {
			lx.advance(1)
			continue
		}
		break
	}
	return lx.src[start:lx.off]
}

// number scans a non-negative integer or a real literal. "1..5" is an
// integer followed by a range symbol.
func (lx *lexer) number(p diag.Pos) cst.Token {
	start := lx.off
	for isDigit(lx.peekByte(0)) {
		lx.advance(1)
	}
	kind := cst.TokNumber
	if lx.peekByte(0) == '.' && isDigit(lx.peekByte(1)) {
		kind = cst.TokReal
		lx.advance(1)
		for isDigit(lx.peekByte(0)) {
			lx.advance(1)
		}
	}
	if c := lx.peekByte(0); c == 'e' || c == 'E' {
		n := 1
		if lx.peekByte(1) == '-' || lx.peekByte(1) == '+' {
			n = 2
		}
		if isDigit(lx.peekByte(n)) {
			kind = cst.TokReal
			lx.advance(n)
			for isDigit(lx.peekByte(0)) {
				lx.advance(1)
			}
		}
	}
	return cst.Token{Kind: kind, Text: lx.src[start:lx.off], Pos: p}
}

// cstring scans a quoted character string. A doubled quote stands for one
// quote; a line break together with the white space around it is dropped.
func (lx *lexer) cstring(p diag.Pos) (cst.Token, error) {
	lx.advance(1)
	var b strings.Builder
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		if c == '"' {
			if lx.peekByte(1) == '"' {
				b.WriteByte('"')
				lx.advance(2)
				continue
			}
			lx.advance(1)
			return cst.Token{Kind: cst.TokCString, Text: b.String(), Pos: p}, nil
		}
		if c == '\n' || c == '\r' {
			s := strings.TrimRight(b.String(), " \t")
			b.Reset()
			b.WriteString(s)
			for lx.off < len(lx.src) && strings.IndexByte(" \t\r\n", lx.src[lx.off]) >= 0 {
				lx.advance(1)
			}
			continue
		}
		b.WriteByte(c)
		lx.advance(1)
	}
	return cst.Token{}, lx.errorf(p, "unterminated string", `closing '"'`)
}

// bhstring scans 'xxx'B and 'xxx'H literals. White space inside is ignored.
func (lx *lexer) bhstring(p diag.Pos) (cst.Token, error) {
	lx.advance(1)
	var b strings.Builder
	for lx.off < len(lx.src) && lx.src[lx.off] != '\'' {
		c := lx.src[lx.off]
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			b.WriteByte(c)
		}
		lx.advance(1)
	}
	if lx.off >= len(lx.src) {
		return cst.Token{}, lx.errorf(p, "unterminated string", "closing \"'\"")
	}
	lx.advance(1)
	digits := b.String()
	switch lx.peekByte(0) {
	case 'B':
		lx.advance(1)
		if strings.Trim(digits, "01") != "" {
			return cst.Token{}, lx.errorf(p, "'"+digits+"'B", "binary digits")
		}
		return cst.Token{Kind: cst.TokBString, Text: digits, Pos: p}, nil
	case 'H':
		lx.advance(1)
		if strings.Trim(digits, "0123456789ABCDEF") != "" {
			return cst.Token{}, lx.errorf(p, "'"+digits+"'H", "hexadecimal digits")
		}
		return cst.Token{Kind: cst.TokHString, Text: digits, Pos: p}, nil
	}
	return cst.Token{}, lx.errorf(lx.pos(), describeNext(lx), `"B"`, `"H"`)
}

func describeNext(lx *lexer) string {
	if lx.off >= len(lx.src) {
		return "end of input"
	}
	r, _ := utf8.DecodeRuneInString(lx.src[lx.off:])
	return quoteRune(r)
}

func quoteRune(r rune) string {
	return `"` + string(r) + `"`
}
