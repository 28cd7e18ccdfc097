package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *[]string {
	t.Helper()
	original, originalLevel, originalColour := Logf, CurrentLevel(), colour
	t.Cleanup(func() {
		colour = originalColour
		SetLogger(original)
		SetLevel(originalLevel)
	})
	colour = false
	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestSetLogger(t *testing.T) {
	lines := capture(t)
	Logf("hello %d", 1)
	assert.Equal(t, []string{"hello 1"}, *lines)

	SetLogger(nil)
	Logf("dropped")
	assert.Len(t, *lines, 1)
}

func TestLevels(t *testing.T) {
	lines := capture(t)

	SetLevel(LevelInfo)
	Debugf("hidden")
	Infof("info")
	Warnf("careful")
	assert.Equal(t, []string{"info", "[WARN] careful"}, *lines)

	SetLevel(LevelDebug)
	Debugf("shown %s", "now")
	assert.Equal(t, "[DEBUG] shown now", (*lines)[2])

	SetLevel(LevelError)
	Infof("hidden")
	Warnf("hidden")
	Errorf("bad")
	assert.Equal(t, "[ERROR] bad", (*lines)[3])
	assert.Len(t, *lines, 4)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"DEBUG": LevelDebug, "": LevelInfo, "warning": LevelWarn, "error": LevelError} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLogfDefault(t *testing.T) {
	assert.NotNil(t, Logf)
	assert.NotPanics(t, func() { Logf("test message: %s", "value") })
}
