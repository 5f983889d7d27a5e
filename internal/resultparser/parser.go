// Package resultparser frames a sandbox's combined stdout+stderr byte
// stream into lines and decodes the JSON result events the test harness
// emits, tracking the most recent final_result as the authoritative
// Summary.
package resultparser

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dontdude/execagent/internal/domain"
)

// controlChar reports whether b is one of the control characters the
// parser strips: U+0000-U+0008, U+000B-U+000C, U+000E-U+001F. Tab (09),
// LF (0A), and CR (0D) are preserved.
func controlChar(b byte) bool {
	switch {
	case b <= 0x08:
		return true
	case b == 0x0B || b == 0x0C:
		return true
	case b >= 0x0E && b <= 0x1F:
		return true
	default:
		return false
	}
}

// Parser accumulates bytes across chunks and decodes complete lines into
// ResultEvents as they become available.
type Parser struct {
	buf   bytes.Buffer
	count int

	mu      sync.Mutex
	summary *domain.Summary
}

// New returns an empty Parser.
func New() *Parser {
	return &Parser{}
}

// Feed appends a chunk of raw sandbox output, strips control characters,
// and decodes every complete line it contains. Incomplete trailing data
// is retained for the next call.
func (p *Parser) Feed(chunk []byte) {
	stripped := make([]byte, 0, len(chunk))
	for _, b := range chunk {
		if controlChar(b) {
			continue
		}
		stripped = append(stripped, b)
	}
	p.buf.Write(stripped)

	for {
		data := p.buf.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := data[:idx]
		p.buf.Next(idx + 1)
		p.handleLine(line)
	}
}

// Close flushes and discards any unterminated trailing bytes left in the
// buffer; the harness contract guarantees LF-terminated lines, so a
// partial tail at stream end carries no event.
func (p *Parser) Close() {
	p.buf.Reset()
}

func (p *Parser) handleLine(line []byte) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return
	}

	brace := bytes.IndexByte(trimmed, '{')
	if brace < 0 {
		return
	}
	trimmed = trimmed[brace:]

	var event domain.ResultEvent
	if err := json.Unmarshal(trimmed, &event); err != nil {
		slog.Debug("result parser: discarding unparsable line", "error", err)
		return
	}

	switch event.Type {
	case domain.EventFinalResult:
		var s domain.Summary
		if err := json.Unmarshal(event.Data, &s); err != nil {
			slog.Debug("result parser: malformed final_result", "error", err)
			return
		}
		p.mu.Lock()
		p.summary = &s
		p.mu.Unlock()
	case domain.EventTestResult:
		// Observed but not accumulated: the harness's final_result
		// carries the full, authoritative case list.
		p.count++
	}
}

// Summary returns the most recently decoded final_result, if any. Safe to
// call concurrently with Feed: a timeout goroutine may race the pump
// goroutine to check whether a result already landed.
func (p *Parser) Summary() (domain.Summary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.summary == nil {
		return domain.Summary{}, false
	}
	return *p.summary, true
}
