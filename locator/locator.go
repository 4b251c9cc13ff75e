// Package locator decorates a lexer's token fragments with their
// structural location: the JSONPath/JSON-Pointer segment path active
// at the moment each fragment was produced.
package locator

import (
	"strings"

	"github.com/flitsinc/jsonstream/chunk"
	"github.com/flitsinc/jsonstream/lexer"
)

// Frame is one level of the locator's container stack.
type Frame interface {
	isFrame()
}

// ObjectFrame is an open object: CurrentKey is the most recently
// completed key awaiting its value (nil between values), AwaitingValue
// mirrors whether a key has been seen for which a value hasn't yet
// arrived.
type ObjectFrame struct {
	CurrentKey    *string
	AwaitingValue bool

	base   []chunk.Segment
	keyBuf strings.Builder
}

func (*ObjectFrame) isFrame() {}

// ArrayFrame is an open array: NextIndex is the index the next value
// token will occupy.
type ArrayFrame struct {
	NextIndex int

	base []chunk.Segment
}

func (*ArrayFrame) isFrame() {}

// Locator wraps a Lexer, turning its Fragment stream into located
// chunk.Records. The zero value is not usable; construct with New.
type Locator struct {
	lex   *lexer.Lexer
	stack []Frame
}

// New creates a Locator ready to accept its first Feed call.
func New() *Locator {
	return &Locator{lex: lexer.New()}
}

// Feed processes one chunk of text and returns the located records it
// produced. Any records produced before a lex error are still
// returned alongside the error.
func (l *Locator) Feed(text string) ([]chunk.Record, error) {
	frags, err := l.lex.Feed(text)
	records := make([]chunk.Record, len(frags))
	for i, f := range frags {
		records[i] = l.handle(f)
	}
	return records, err
}

// Finish signals the end of input, per the same rules as lexer.Finish.
func (l *Locator) Finish() error {
	return l.lex.Finish()
}

func (l *Locator) handle(f lexer.Fragment) chunk.Record {
	switch f.Kind {
	case chunk.ObjectStart:
		segs := l.currentValueSegments()
		l.stack = append(l.stack, &ObjectFrame{base: segs})
		return chunk.New("", chunk.ObjectStart, segs)
	case chunk.ArrayStart:
		segs := l.currentValueSegments()
		l.stack = append(l.stack, &ArrayFrame{base: segs})
		return chunk.New("", chunk.ArrayStart, segs)
	case chunk.ObjectEnd, chunk.ArrayEnd:
		return l.closeContainer(f.Kind)
	case chunk.Key:
		return l.handleKey(f)
	default: // String, Number, Boolean, Null
		segs := l.currentValueSegments()
		rec := chunk.New(f.Text, f.Kind, segs)
		if f.End {
			l.advanceParent()
		}
		return rec
	}
}

func (l *Locator) closeContainer(kind chunk.Kind) chunk.Record {
	n := len(l.stack)
	top := l.stack[n-1]
	segs := frameBase(top)
	l.stack = l.stack[:n-1]
	l.advanceParent()
	return chunk.New("", kind, segs)
}

func (l *Locator) handleKey(f lexer.Fragment) chunk.Record {
	fr := l.stack[len(l.stack)-1].(*ObjectFrame)
	fr.keyBuf.WriteString(f.Text)
	fr.AwaitingValue = true
	rec := chunk.New(f.Text, chunk.Key, fr.base)
	if f.End {
		key := fr.keyBuf.String()
		fr.CurrentKey = &key
		fr.keyBuf.Reset()
	}
	return rec
}

// currentValueSegments computes the path a value token occupies right
// now, given the top frame: the enclosing object's fixed key, or the
// enclosing array's running index, appended to that frame's own base
// path. At the root (empty stack) this is nil.
func (l *Locator) currentValueSegments() []chunk.Segment {
	if len(l.stack) == 0 {
		return nil
	}
	switch fr := l.stack[len(l.stack)-1].(type) {
	case *ObjectFrame:
		key := ""
		if fr.CurrentKey != nil {
			key = *fr.CurrentKey
		}
		return appendSegment(fr.base, chunk.KeySegment(key))
	case *ArrayFrame:
		return appendSegment(fr.base, chunk.IndexSegment(fr.NextIndex))
	}
	return nil
}

// advanceParent runs once a value token (scalar, or a just-closed
// container) completes: it clears the enclosing object's fixed key,
// ready for the next one, or advances the enclosing array's index.
func (l *Locator) advanceParent() {
	if len(l.stack) == 0 {
		return
	}
	switch fr := l.stack[len(l.stack)-1].(type) {
	case *ObjectFrame:
		fr.CurrentKey = nil
		fr.AwaitingValue = false
	case *ArrayFrame:
		fr.NextIndex++
	}
}

func frameBase(f Frame) []chunk.Segment {
	switch fr := f.(type) {
	case *ObjectFrame:
		return fr.base
	case *ArrayFrame:
		return fr.base
	}
	return nil
}

func appendSegment(base []chunk.Segment, seg chunk.Segment) []chunk.Segment {
	out := make([]chunk.Segment, len(base)+1)
	copy(out, base)
	out[len(base)] = seg
	return out
}
