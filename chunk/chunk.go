// Package chunk defines the located token chunk emitted by the
// streaming JSON pipeline: a token's partial textual value together
// with the structural path it occupies in the document being parsed.
package chunk

import "github.com/flitsinc/jsonstream/jsonpath"

// Kind identifies the JSON token a Record fragment belongs to.
type Kind string

const (
	ObjectStart Kind = "object_start"
	ObjectEnd   Kind = "object_end"
	ArrayStart  Kind = "array_start"
	ArrayEnd    Kind = "array_end"
	Key         Kind = "key"
	String      Kind = "string"
	Number      Kind = "number"
	Boolean     Kind = "boolean"
	Null        Kind = "null"
)

// Segment is one step in a structural path: either an object key or a
// non-negative array index. Exactly one of the two is meaningful,
// selected by IsIndex.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// KeySegment builds a string-keyed path segment.
func KeySegment(key string) Segment {
	return Segment{Key: key}
}

// IndexSegment builds an array-index path segment.
func IndexSegment(index int) Segment {
	return Segment{Index: index, IsIndex: true}
}

// Record is an immutable located token fragment. Segments is shared by
// reference with whoever constructed the Record; callers must not
// mutate it afterwards.
//
// Two successive Records with identical (Type, Segments) belonging to
// the same token concatenate losslessly: Value carries escape
// sequences exactly as written in the source, undecoded.
type Record struct {
	Value    string
	Type     Kind
	Segments []Segment
}

// New constructs a Record. segments is captured by reference.
func New(value string, typ Kind, segments []Segment) Record {
	return Record{Value: value, Type: typ, Segments: segments}
}

// Path renders the record's structural location as a JSONPath
// expression, e.g. "$.a[1].b".
func (r Record) Path() string {
	return jsonpath.ToJSONPath(toFormatterSegments(r.Segments))
}

// Pointer renders the record's structural location as an RFC 6901 JSON
// Pointer, e.g. "/a/1/b".
func (r Record) Pointer() string {
	return jsonpath.ToJSONPointer(toFormatterSegments(r.Segments))
}

func toFormatterSegments(segments []Segment) []jsonpath.Segment {
	if len(segments) == 0 {
		return nil
	}
	out := make([]jsonpath.Segment, len(segments))
	for i, seg := range segments {
		out[i] = jsonpath.Segment{Key: seg.Key, Index: seg.Index, IsIndex: seg.IsIndex}
	}
	return out
}
