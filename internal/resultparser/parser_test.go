package resultparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserFinalResultWins(t *testing.T) {
	p := New()
	p.Feed([]byte(`{"type":"test_result","data":{"id":1,"status":"passed","time":1.2}}` + "\n"))
	p.Feed([]byte(`{"type":"final_result","data":{"total":1,"passed":1,"failed":0,"execution_time":1.2,"cases":[{"id":1,"status":"passed","time":1.2}]}}` + "\n"))

	summary, ok := p.Summary()
	require.True(t, ok)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 0, summary.Failed)
}

func TestParserFinalResultWinsEvenWhenTestResultArrivesAfter(t *testing.T) {
	p := New()
	p.Feed([]byte(`{"type":"final_result","data":{"total":2,"passed":1,"failed":1,"execution_time":4,"cases":[]}}` + "\n"))
	p.Feed([]byte(`{"type":"test_result","data":{"id":2,"status":"failed","time":0.5}}` + "\n"))

	summary, ok := p.Summary()
	require.True(t, ok)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Failed)
}

func TestParserLastFinalResultOverwritesEarlierOne(t *testing.T) {
	p := New()
	p.Feed([]byte(`{"type":"final_result","data":{"total":1,"passed":0,"failed":1,"execution_time":1,"cases":[]}}` + "\n"))
	p.Feed([]byte(`{"type":"final_result","data":{"total":1,"passed":1,"failed":0,"execution_time":1,"cases":[]}}` + "\n"))

	summary, ok := p.Summary()
	require.True(t, ok)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 0, summary.Failed)
}

func TestParserStripsControlCharactersBeforeFraming(t *testing.T) {
	p := New()
	noisy := []byte{0x01, 0x02}
	noisy = append(noisy, []byte(`{"type":"final_result","data":{"total":1,"passed":1,"failed":0,"execution_time":1,"cases":[]}}`)...)
	noisy = append(noisy, '\n')
	p.Feed(noisy)

	summary, ok := p.Summary()
	require.True(t, ok)
	assert.Equal(t, 1, summary.Total)
}

func TestParserDiscardsMalformedLine(t *testing.T) {
	p := New()
	p.Feed([]byte("not json at all\n"))
	p.Feed([]byte(`{"type":"final_result","data":{"total":1,"passed":1,"failed":0,"execution_time":1,"cases":[]}}` + "\n"))

	summary, ok := p.Summary()
	require.True(t, ok)
	assert.Equal(t, 1, summary.Total)
}

func TestParserDiscardsPrefixBeforeFirstBrace(t *testing.T) {
	p := New()
	p.Feed([]byte(`stdout: {"type":"final_result","data":{"total":1,"passed":1,"failed":0,"execution_time":1,"cases":[]}}` + "\n"))

	summary, ok := p.Summary()
	require.True(t, ok)
	assert.Equal(t, 1, summary.Passed)
}

func TestParserControlCharOnlyLineYieldsNoEvent(t *testing.T) {
	p := New()
	p.Feed([]byte{0x01, 0x02, 0x03, '\n'})

	_, ok := p.Summary()
	assert.False(t, ok)
}

func TestParserFeedAcrossChunkBoundaries(t *testing.T) {
	p := New()
	line := `{"type":"final_result","data":{"total":1,"passed":1,"failed":0,"execution_time":1,"cases":[]}}` + "\n"
	mid := len(line) / 2
	p.Feed([]byte(line[:mid]))
	p.Feed([]byte(line[mid:]))

	summary, ok := p.Summary()
	require.True(t, ok)
	assert.Equal(t, 1, summary.Total)
}

func TestParserUnterminatedTrailingDataCarriesNoEvent(t *testing.T) {
	p := New()
	p.Feed([]byte(`{"type":"final_result","data":{"total":1,"passed":1,"failed":0,"execution_time":1,"cases":[]}}`))
	p.Close()

	_, ok := p.Summary()
	assert.False(t, ok)
}

func TestParserNoSummaryBeforeAnyFinalResult(t *testing.T) {
	p := New()
	p.Feed([]byte(`{"type":"test_result","data":{"id":1,"status":"passed","time":1}}` + "\n"))

	_, ok := p.Summary()
	assert.False(t, ok)
}

func TestParserCaseErrorFallsBackToStackWhenTraceAbsent(t *testing.T) {
	p := New()
	p.Feed([]byte(`{"type":"final_result","data":{"total":1,"passed":0,"failed":1,"execution_time":1,"cases":[{"id":1,"status":"error","time":1,"error":{"type":"TypeError","message":"boom","stack":"at solution (solution.js:2:3)"}}]}}` + "\n"))

	summary, ok := p.Summary()
	require.True(t, ok)
	require.Len(t, summary.Cases, 1)
	require.NotNil(t, summary.Cases[0].Error)
	assert.Equal(t, "at solution (solution.js:2:3)", summary.Cases[0].Error.Trace)
}

func TestParserCaseErrorPrefersTraceOverStack(t *testing.T) {
	p := New()
	p.Feed([]byte(`{"type":"final_result","data":{"total":1,"passed":0,"failed":1,"execution_time":1,"cases":[{"id":1,"status":"error","time":1,"error":{"type":"ValueError","message":"boom","trace":"pythonic trace","stack":"should be ignored"}}]}}` + "\n"))

	summary, ok := p.Summary()
	require.True(t, ok)
	require.NotNil(t, summary.Cases[0].Error)
	assert.Equal(t, "pythonic trace", summary.Cases[0].Error.Trace)
}

func TestControlCharClassification(t *testing.T) {
	cases := []struct {
		b    byte
		want bool
	}{
		{0x00, true},
		{0x08, true},
		{0x09, false}, // tab
		{0x0A, false}, // LF
		{0x0B, true},
		{0x0C, true},
		{0x0D, false}, // CR
		{0x0E, true},
		{0x1F, true},
		{0x20, false},
		{'{', false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, controlChar(c.b), "byte 0x%02x", c.b)
	}
}
