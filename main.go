package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/flitsinc/jsonstream/chunk"
	"github.com/flitsinc/jsonstream/stream"
)

func init() {
	// Put endpoint URLs and tokens in .env and this will load them.
	godotenv.Overload()
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	var src any
	switch os.Args[1] {
	case "stdin":
		src = &stdinHandle{r: bufio.NewReader(os.Stdin)}
	case "sample":
		src = &sampleSequence{chunks: []string{
			`{"name":"Cafe`, `é","nums":[1,-2.5,`, `3e10],"ok":true}`,
		}}
	default:
		printUsage()
		return
	}

	s, err := stream.Parse(context.Background(), src)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	for rec := range s.Records() {
		printRecord(rec)
	}
	if err := s.Err(); err != nil {
		fmt.Println("Error:", err)
	}
}

func printRecord(rec chunk.Record) {
	fmt.Printf("%-12s %-10q path=%s pointer=%s\n", rec.Type, rec.Value, rec.Path(), rec.Pointer())
}

func printUsage() {
	fmt.Println("usage: jsonstream <stdin|sample>")
	fmt.Println("  stdin  - tokenize newline-delimited JSON text chunks read from stdin")
	fmt.Println("  sample - tokenize a small built-in example split across several chunks")
}

// stdinHandle adapts os.Stdin into a source.PullStreamHandle, yielding
// one line (including its terminator) per Pull.
type stdinHandle struct {
	r *bufio.Reader
}

func (h *stdinHandle) Pull(ctx context.Context) (any, error) {
	line, err := h.r.ReadString('\n')
	if line != "" {
		return line, nil
	}
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}
	return line, nil
}

func (h *stdinHandle) Close() error {
	return nil
}

// sampleSequence adapts a fixed slice of chunks into a
// source.AsyncSequenceHandle, for the "sample" demo mode.
type sampleSequence struct {
	chunks []string
	pos    int
}

func (s *sampleSequence) Next(ctx context.Context) (any, bool, error) {
	if s.pos >= len(s.chunks) {
		return nil, false, nil
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, true, nil
}

func (s *sampleSequence) Close() error {
	return nil
}
