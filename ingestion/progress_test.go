package ingestion

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_ReportsEveryInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, "doc.txt", 2)
	p.Start(5)

	p.Increment(1)
	assert.Empty(t, buf.String())

	p.Increment(1)
	assert.Contains(t, buf.String(), "doc.txt: 2/5 chunks (40.0%)")

	p.Increment(10)
	assert.Equal(t, 5, p.Current())

	p.Finish()
	out := buf.String()
	assert.Contains(t, out, "doc.txt: 5/5 chunks (100.0%)")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestProgressTracker_IgnoredBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, "doc.txt", 1)

	p.Increment(3)
	p.Finish()

	assert.Zero(t, p.Current())
	assert.Zero(t, p.Elapsed())
	assert.Empty(t, buf.String())
}
