// Package lexer implements a chunk-boundary-safe JSON tokenizer: it
// accepts arbitrarily split input text and emits a lazy sequence of
// token fragments tagged with their JSON token kind. Any split of the
// same source text yields the same concatenated fragment values per
// token and the same sequence of token kinds; fragment *boundaries*
// may differ between splits, but their concatenation never does.
package lexer

import (
	"fmt"
	"strings"

	"github.com/flitsinc/jsonstream/chunk"
)

// Fragment is one piece of a token's textual content, as produced by a
// single Feed call. Escape sequences are carried exactly as written in
// the source (undecoded); a consuming layer is responsible for
// JSON-unescaping if it wants the represented character.
//
// End marks the fragment that completes its token: always true for
// structural fragments (they are always their own whole token), true
// for the fragment that reaches a string's closing quote, a keyword's
// last character, or the character that ends a number (a bare
// root-level number ended by Finish gets no End fragment, since Finish
// emits nothing), and false for a fragment produced only
// because a chunk boundary or an escape sequence forced an early
// flush. A locator needs this to tell two adjacent same-kind tokens
// apart (e.g. two bare numbers in an array), since nothing else in the
// fragment stream marks where one token ends and the next begins.
type Fragment struct {
	Kind chunk.Kind
	Text string
	End  bool
}

// SyntaxError reports a lex failure: an unexpected rune in a given
// state, or a premature end of input.
type SyntaxError struct {
	State    string
	Rune     rune
	Position int
	Message  string
}

func (e *SyntaxError) Error() string {
	if e.Rune == 0 {
		return fmt.Sprintf("jsonstream/lexer: %s at position %d (state %s)", e.Message, e.Position, e.State)
	}
	return fmt.Sprintf("jsonstream/lexer: %s %q at position %d (state %s)", e.Message, e.Rune, e.Position, e.State)
}

type state int

const (
	stTop state = iota
	stInObject
	stInObjectAfterKey
	stInObjectAfterColon
	stInObjectAfterValue
	stInArray
	stInArrayAfterValue
	stInString
	stInStringEscape
	stInStringUnicode
	stInNumber
	stInKeyword
)

func (s state) String() string {
	switch s {
	case stTop:
		return "Top"
	case stInObject:
		return "InObject"
	case stInObjectAfterKey:
		return "InObjectAfterKey"
	case stInObjectAfterColon:
		return "InObjectAfterColon"
	case stInObjectAfterValue:
		return "InObjectAfterValue"
	case stInArray:
		return "InArray"
	case stInArrayAfterValue:
		return "InArrayAfterValue"
	case stInString:
		return "InString"
	case stInStringEscape:
		return "InStringEscape"
	case stInStringUnicode:
		return "InStringUnicode"
	case stInNumber:
		return "InNumber"
	case stInKeyword:
		return "InKeyword"
	default:
		return "Unknown"
	}
}

// numberScan tracks the sub-position within the JSON number grammar
// -?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)? as digits arrive.
type numberScan struct {
	digitsInt   int
	leadingZero bool
	sawDot      bool
	digitsFrac  int
	sawExp      bool
	sawExpSign  bool
	digitsExp   int
}

// Lexer is a character-driven JSON tokenizer resumable across chunk
// boundaries. The zero value is not usable; construct with New.
type Lexer struct {
	state state
	// returnStack remembers, for each open container, the state to
	// resume once that container (as a value) is fully consumed. This
	// is the "shallow container stack mirrored to the locator" of the
	// design: its only job is telling the lexer whether a value just
	// completed inside an object or an array (or at the root).
	returnStack []state

	hasValue bool // a root-level value has been seen

	// String/key accumulation.
	stringBuf       strings.Builder
	stringKind      chunk.Kind // chunk.Key or chunk.String for the in-flight string
	stringEmitted   bool       // at least one fragment emitted for the in-flight string
	unicodeDigits   int
	unicodeBuf      [4]byte
	afterString     state // state to enter once the in-flight string value completes

	// Number accumulation.
	numberBuf strings.Builder
	ns        numberScan
	afterNum  state

	// Keyword accumulation.
	keyword      string // target literal: "true", "false", or "null"
	keywordPos   int
	keywordKind  chunk.Kind
	afterKeyword state

	position int // rune count consumed, for error messages
}

// New creates a Lexer ready to accept its first Feed call.
func New() *Lexer {
	return &Lexer{state: stTop}
}

// Feed processes one chunk of text (a legal no-op if empty) and
// returns the token fragments it produced.
func (l *Lexer) Feed(text string) ([]Fragment, error) {
	var frags []Fragment
	for _, r := range text {
		if err := l.step(r, &frags); err != nil {
			return frags, err
		}
		l.position++
	}
	// Chunk boundary: flush whatever string/number text has
	// accumulated so far, so fragments never wait across Feed calls.
	l.flushStringIfPending(&frags)
	l.flushNumberIfPending(&frags, false)
	return frags, nil
}

// Finish signals the end of input. It is an error unless the lexer is
// sitting at the top level having already seen exactly one top-level
// value.
func (l *Lexer) Finish() error {
	if len(l.returnStack) != 0 {
		return &SyntaxError{State: l.state.String(), Position: l.position, Message: "unexpected end of input: unterminated container"}
	}
	switch l.state {
	case stTop:
		if !l.hasValue {
			return &SyntaxError{State: l.state.String(), Position: l.position, Message: "unexpected end of input: no value"}
		}
		return nil
	case stInNumber:
		// Unlike strings and keywords, a number has no terminating
		// character: with an empty returnStack this can only be a
		// bare root-level number, and it is complete input iff the
		// number itself is syntactically complete.
		if l.numberIsComplete() {
			return nil
		}
		return &SyntaxError{State: l.state.String(), Position: l.position, Message: "incomplete number at end of input"}
	case stInObjectAfterValue, stInArrayAfterValue:
		// Unreachable with an empty returnStack (these states only
		// occur inside an open container), kept for clarity.
		return nil
	default:
		return &SyntaxError{State: l.state.String(), Position: l.position, Message: "unexpected end of input"}
	}
}

func isJSONWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

func (l *Lexer) step(r rune, frags *[]Fragment) error {
	switch l.state {
	case stInString:
		return l.stepString(r, frags)
	case stInStringEscape:
		return l.stepStringEscape(r, frags)
	case stInStringUnicode:
		return l.stepStringUnicode(r, frags)
	case stInNumber:
		return l.stepNumber(r, frags)
	case stInKeyword:
		return l.stepKeyword(r, frags)
	default:
		if isJSONWhitespace(r) {
			return nil
		}
		return l.stepStructural(r, frags)
	}
}

func (l *Lexer) stepStructural(r rune, frags *[]Fragment) error {
	switch l.state {
	case stTop:
		if l.hasValue {
			return l.errf(r, "unexpected trailing character after top-level value")
		}
		return l.startValue(r, stTop, frags)
	case stInObjectAfterColon:
		return l.startValue(r, stInObjectAfterValue, frags)
	case stInArray:
		if r == ']' {
			return l.closeArray(frags)
		}
		return l.startValue(r, stInArrayAfterValue, frags)
	case stInObject:
		switch r {
		case '}':
			return l.closeObject(frags)
		case '"':
			l.beginString(chunk.Key, stInObjectAfterKey)
			return nil
		}
		return l.errf(r, "expected object key or '}'")
	case stInObjectAfterKey:
		if r == ':' {
			l.state = stInObjectAfterColon
			return nil
		}
		return l.errf(r, "expected ':'")
	case stInObjectAfterValue:
		switch r {
		case ',':
			l.state = stInObject
			return nil
		case '}':
			return l.closeObject(frags)
		}
		return l.errf(r, "expected ',' or '}'")
	case stInArrayAfterValue:
		switch r {
		case ',':
			l.state = stInArray
			return nil
		case ']':
			return l.closeArray(frags)
		}
		return l.errf(r, "expected ',' or ']'")
	}
	return l.errf(r, "unexpected character")
}

// startValue dispatches the first character of a value in any
// value-expecting state. after is the state to resume once this value
// (if it turns out to be a scalar) completes.
func (l *Lexer) startValue(r rune, after state, frags *[]Fragment) error {
	switch {
	case r == '{':
		*frags = append(*frags, Fragment{Kind: chunk.ObjectStart, End: true})
		l.returnStack = append(l.returnStack, after)
		l.state = stInObject
		l.markValueSeen(after)
		return nil
	case r == '[':
		*frags = append(*frags, Fragment{Kind: chunk.ArrayStart, End: true})
		l.returnStack = append(l.returnStack, after)
		l.state = stInArray
		l.markValueSeen(after)
		return nil
	case r == '"':
		l.beginString(chunk.String, after)
		l.markValueSeen(after)
		return nil
	case r == '-' || (r >= '0' && r <= '9'):
		l.beginNumber(r, after)
		l.markValueSeen(after)
		return nil
	case r == 't':
		l.beginKeyword("true", chunk.Boolean, after)
		l.markValueSeen(after)
		return nil
	case r == 'f':
		l.beginKeyword("false", chunk.Boolean, after)
		l.markValueSeen(after)
		return nil
	case r == 'n':
		l.beginKeyword("null", chunk.Null, after)
		l.markValueSeen(after)
		return nil
	}
	return l.errf(r, "expected a value")
}

// markValueSeen records that the root has seen its one top-level
// value, the moment a value starts at the root.
func (l *Lexer) markValueSeen(after state) {
	if after == stTop {
		l.hasValue = true
	}
}

func (l *Lexer) closeObject(frags *[]Fragment) error {
	*frags = append(*frags, Fragment{Kind: chunk.ObjectEnd, End: true})
	return l.popContainer(frags)
}

func (l *Lexer) closeArray(frags *[]Fragment) error {
	*frags = append(*frags, Fragment{Kind: chunk.ArrayEnd, End: true})
	return l.popContainer(frags)
}

func (l *Lexer) popContainer(frags *[]Fragment) error {
	n := len(l.returnStack)
	if n == 0 {
		return l.errf(0, "unbalanced container close")
	}
	resume := l.returnStack[n-1]
	l.returnStack = l.returnStack[:n-1]
	l.state = resume
	if resume == stTop {
		l.hasValue = true
	}
	return nil
}

func (l *Lexer) errf(r rune, msg string) error {
	return &SyntaxError{State: l.state.String(), Rune: r, Position: l.position, Message: msg}
}

// --- strings ---

func (l *Lexer) beginString(kind chunk.Kind, after state) {
	l.state = stInString
	l.stringKind = kind
	l.afterString = after
	l.stringBuf.Reset()
	l.stringEmitted = false
}

func (l *Lexer) flushStringIfPending(frags *[]Fragment) {
	if l.state != stInString && l.state != stInStringEscape && l.state != stInStringUnicode {
		return
	}
	if l.stringBuf.Len() == 0 {
		return
	}
	*frags = append(*frags, Fragment{Kind: l.stringKind, Text: l.stringBuf.String()})
	l.stringBuf.Reset()
	l.stringEmitted = true
}

func (l *Lexer) stepString(r rune, frags *[]Fragment) error {
	switch r {
	case '"':
		// Always emit a closing fragment, even an empty one: it is the
		// only signal that tells a locator this token just ended,
		// which matters even when there is no new text to flush (an
		// empty string token, or a token whose last escape flush
		// already drained the buffer).
		*frags = append(*frags, Fragment{Kind: l.stringKind, Text: l.stringBuf.String(), End: true})
		l.stringBuf.Reset()
		l.stringEmitted = false
		next := l.afterString
		l.state = next
		if next == stTop {
			l.hasValue = true
		}
		return nil
	case '\\':
		// Flush everything accumulated before the escape, then start
		// a fresh fragment containing the escape sequence itself.
		l.flushStringIfPending(frags)
		l.stringBuf.WriteByte('\\')
		l.state = stInStringEscape
		return nil
	default:
		l.stringBuf.WriteRune(r)
		return nil
	}
}

func (l *Lexer) stepStringEscape(r rune, frags *[]Fragment) error {
	switch r {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		l.stringBuf.WriteRune(r)
		*frags = append(*frags, Fragment{Kind: l.stringKind, Text: l.stringBuf.String()})
		l.stringBuf.Reset()
		l.stringEmitted = true
		l.state = stInString
		return nil
	case 'u':
		l.stringBuf.WriteRune(r)
		l.unicodeDigits = 0
		l.state = stInStringUnicode
		return nil
	}
	return l.errf(r, "invalid escape sequence")
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func (l *Lexer) stepStringUnicode(r rune, frags *[]Fragment) error {
	if !isHexDigit(r) {
		return l.errf(r, "invalid \\u escape: expected hex digit")
	}
	l.stringBuf.WriteRune(r)
	l.unicodeDigits++
	if l.unicodeDigits == 4 {
		*frags = append(*frags, Fragment{Kind: l.stringKind, Text: l.stringBuf.String()})
		l.stringBuf.Reset()
		l.stringEmitted = true
		l.state = stInString
	}
	return nil
}

// --- numbers ---

func (l *Lexer) beginNumber(r rune, after state) {
	l.state = stInNumber
	l.afterNum = after
	l.numberBuf.Reset()
	l.ns = numberScan{}
	if r == '-' {
		l.numberBuf.WriteRune(r)
		return
	}
	l.numberBuf.WriteRune(r)
	l.ns.digitsInt = 1
	l.ns.leadingZero = r == '0'
}

func (l *Lexer) flushNumberIfPending(frags *[]Fragment, end bool) {
	if l.state != stInNumber || l.numberBuf.Len() == 0 {
		return
	}
	*frags = append(*frags, Fragment{Kind: chunk.Number, Text: l.numberBuf.String(), End: end})
	l.numberBuf.Reset()
}

// numberAccepts reports whether r can extend the number literal given
// its current grammar sub-position.
func (ns *numberScan) accepts(r rune) bool {
	digit := r >= '0' && r <= '9'
	switch {
	case !ns.sawDot && !ns.sawExp:
		if digit {
			if ns.digitsInt > 0 && ns.leadingZero {
				return false // "01" is not a legal JSON number
			}
			if ns.digitsInt == 0 {
				ns.leadingZero = r == '0'
			}
			ns.digitsInt++
			return true
		}
		if r == '.' && ns.digitsInt > 0 {
			ns.sawDot = true
			return true
		}
		if (r == 'e' || r == 'E') && ns.digitsInt > 0 {
			ns.sawExp = true
			return true
		}
		return false
	case ns.sawDot && !ns.sawExp:
		if digit {
			ns.digitsFrac++
			return true
		}
		if (r == 'e' || r == 'E') && ns.digitsFrac > 0 {
			ns.sawExp = true
			return true
		}
		return false
	default: // ns.sawExp
		if digit {
			ns.digitsExp++
			return true
		}
		if (r == '+' || r == '-') && !ns.sawExpSign && ns.digitsExp == 0 {
			ns.sawExpSign = true
			return true
		}
		return false
	}
}

func (l *Lexer) numberIsComplete() bool {
	if l.ns.digitsInt == 0 {
		return false
	}
	if l.ns.sawDot && l.ns.digitsFrac == 0 {
		return false
	}
	if l.ns.sawExp && l.ns.digitsExp == 0 {
		return false
	}
	return true
}

func (l *Lexer) stepNumber(r rune, frags *[]Fragment) error {
	if l.ns.accepts(r) {
		l.numberBuf.WriteRune(r)
		return nil
	}
	if !l.numberIsComplete() {
		return l.errf(r, "invalid number literal")
	}
	// Always emit a terminating fragment, even an empty one: when a
	// chunk boundary already flushed the number's text, this is the
	// only signal that tells a locator the token just ended.
	*frags = append(*frags, Fragment{Kind: chunk.Number, Text: l.numberBuf.String(), End: true})
	l.numberBuf.Reset()
	next := l.afterNum
	l.state = next
	if next == stTop {
		l.hasValue = true
	}
	// Reprocess r in the resumed state: it terminated the number but
	// may itself be significant (',', '}', whitespace, ...).
	if isJSONWhitespace(r) && l.state != stInString && l.state != stInStringEscape && l.state != stInStringUnicode {
		return nil
	}
	return l.step(r, frags)
}

// --- keywords ---

func (l *Lexer) beginKeyword(word string, kind chunk.Kind, after state) {
	l.state = stInKeyword
	l.keyword = word
	l.keywordKind = kind
	l.keywordPos = 1 // the first character selected the keyword
	l.afterKeyword = after
}

func (l *Lexer) stepKeyword(r rune, frags *[]Fragment) error {
	if l.keywordPos >= len(l.keyword) || rune(l.keyword[l.keywordPos]) != r {
		return l.errf(r, fmt.Sprintf("invalid literal, expected %q", l.keyword))
	}
	l.keywordPos++
	if l.keywordPos == len(l.keyword) {
		*frags = append(*frags, Fragment{Kind: l.keywordKind, Text: l.keyword, End: true})
		next := l.afterKeyword
		l.state = next
		if next == stTop {
			l.hasValue = true
		}
	}
	return nil
}
