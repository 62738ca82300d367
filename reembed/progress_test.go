package reembed

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_ReportsAtInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 50)
	tracker.Start()

	tracker.Add(20)
	assert.Empty(t, buf.String())

	tracker.Add(30)
	assert.Contains(t, buf.String(), "50/100")
	assert.Contains(t, buf.String(), "50.0%")

	tracker.Add(80)
	assert.Contains(t, buf.String(), "100/100", "done is capped at total")

	tracker.Finish()
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestProgressTracker_IgnoredBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)

	tracker.Add(5)
	tracker.Finish()
	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Snapshot().Done)
}

func TestProgress_EmptyMigrationIsComplete(t *testing.T) {
	p := Progress{}
	assert.Equal(t, 100.0, p.Percent())
	assert.Zero(t, p.Rate())
}

func TestNewProgressTracker_NilWriter(t *testing.T) {
	tracker := NewProgressTracker(nil, 3, 0)
	tracker.Start()
	tracker.Add(3)
	tracker.Finish()
	assert.Equal(t, 3, tracker.Snapshot().Done)
}
