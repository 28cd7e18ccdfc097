package pipeerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := Wrap(CodeStructure, "cannot detect layout", errors.New("no groups"))
	wrapped := fmt.Errorf("open loader: %w", err)

	assert.ErrorIs(t, wrapped, ErrStructure)
	assert.NotErrorIs(t, wrapped, ErrDomain)
	assert.Equal(t, CodeStructure, CodeOf(wrapped))
	assert.Equal(t, "cannot detect layout: no groups", err.Error())
}

func TestErrorMetadataIsSorted(t *testing.T) {
	err := WithMetadata(CodeEventSetMismatch, "Tables have different numbers of events",
		map[string]string{"right": "tel", "left": "trigger"})
	assert.Equal(t, "Tables have different numbers of events (left=trigger, right=tel)", err.Error())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"configuration", New(CodeConfiguration, "bad flag"), ExitConfiguration},
		{"wrapped configuration", fmt.Errorf("setup: %w", New(CodeConfiguration, "x")), ExitConfiguration},
		{"structure", New(CodeStructure, "x"), ExitFailure},
		{"foreign", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "key_mismatch", CodeKeyMismatch.String())
	assert.Equal(t, "unknown", Code(99).String())
}
