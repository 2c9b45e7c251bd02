package runner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rlch/elmtest/runner"
)

func TestLineSplitter(t *testing.T) {
	t.Parallel()

	var s runner.LineSplitter

	assert.Empty(t, s.Write([]byte("ab")))
	assert.Equal(t, []string{"abc", "de"}, s.Write([]byte("c\nde\r\nf")))
	assert.Equal(t, []string{"f", ""}, s.Write([]byte("\n\n")))

	_, ok := s.Flush()
	assert.False(t, ok)

	s.Write([]byte("tail\r"))

	line, ok := s.Flush()
	assert.True(t, ok)
	assert.Equal(t, "tail", line)
}
