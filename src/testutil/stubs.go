// Package testutil holds call-counting stand-ins for the external backends
// used by the answer pipeline.
package testutil

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"docqa/src/core/docqa"
)

// Generator is a scripted TextGenerator. Replies and failures are keyed by
// request purpose.
type Generator struct {
	mu       sync.Mutex
	replies  map[docqa.Purpose]string
	failures map[docqa.Purpose]error
	hangs    map[docqa.Purpose]bool
	requests []docqa.GenerationRequest
}

func NewGenerator() *Generator {
	return &Generator{
		replies:  make(map[docqa.Purpose]string),
		failures: make(map[docqa.Purpose]error),
		hangs:    make(map[docqa.Purpose]bool),
	}
}

func (g *Generator) Reply(p docqa.Purpose, text string) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies[p] = text
	delete(g.failures, p)
	return g
}

func (g *Generator) Fail(p docqa.Purpose, err error) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[p] = err
	return g
}

// Hang makes requests for p block until their context ends.
func (g *Generator) Hang(p docqa.Purpose) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hangs[p] = true
	return g
}

func (g *Generator) Complete(ctx context.Context, req docqa.GenerationRequest) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	hang := g.hangs[req.Purpose]
	err, failed := g.failures[req.Purpose]
	reply := g.replies[req.Purpose]
	g.mu.Unlock()

	if hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if failed {
		return "", err
	}
	return reply, nil
}

// Calls counts requests for p.
func (g *Generator) Calls(p docqa.Purpose) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, r := range g.requests {
		if r.Purpose == p {
			n++
		}
	}
	return n
}

func (g *Generator) Total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// Last returns the most recent request for p.
func (g *Generator) Last(p docqa.Purpose) (docqa.GenerationRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.requests) - 1; i >= 0; i-- {
		if g.requests[i].Purpose == p {
			return g.requests[i], true
		}
	}
	return docqa.GenerationRequest{}, false
}

// Embedder hashes lower-cased words into Dim buckets, so texts sharing
// words end up close together.
type Embedder struct {
	Dim int

	mu     sync.Mutex
	calls  int
	models []string
	err    error
	hang   bool
}

func NewEmbedder(dim int) *Embedder {
	return &Embedder{Dim: dim}
}

func (e *Embedder) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Hang makes later calls block until their context ends.
func (e *Embedder) Hang() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hang = true
}

func (e *Embedder) Embed(ctx context.Context, model, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.models = append(e.models, model)
	if e.hang {
		e.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}

	v := make([]float32, e.Dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%uint32(e.Dim)]++
	}
	return v, nil
}

func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Models lists the model argument of every call.
func (e *Embedder) Models() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.models...)
}

// Decoder returns fixed pages, or Err.
type Decoder struct {
	Pages []docqa.Page
	Err   error
}

func (d Decoder) Decode(context.Context, string, []byte) ([]docqa.Page, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Pages, nil
}

// Pages numbers texts from 1.
func Pages(texts ...string) []docqa.Page {
	pages := make([]docqa.Page, len(texts))
	for i, t := range texts {
		pages[i] = docqa.Page{Number: i + 1, Text: t}
	}
	return pages
}

// Recorder keeps every recorded turn.
type Recorder struct {
	mu      sync.Mutex
	Records []docqa.TurnRecord
}

func (r *Recorder) RecordTurn(_ context.Context, rec docqa.TurnRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Records = append(r.Records, rec)
	return nil
}
