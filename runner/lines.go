package runner

import (
	"bytes"
	"strings"
)

// LineSplitter turns arbitrary output chunks into complete lines.
type LineSplitter struct {
	partial strings.Builder
}

// Write appends chunk and returns the lines it completed, without their
// terminators. A trailing "\r" is dropped as well.
func (s *LineSplitter) Write(chunk []byte) []string {
	var lines []string

	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			s.partial.Write(chunk)

			break
		}

		s.partial.Write(chunk[:i])
		lines = append(lines, strings.TrimSuffix(s.partial.String(), "\r"))
		s.partial.Reset()

		chunk = chunk[i+1:]
	}

	return lines
}

// Flush returns the unterminated remainder, if any, and resets.
func (s *LineSplitter) Flush() (string, bool) {
	if s.partial.Len() == 0 {
		return "", false
	}

	line := strings.TrimSuffix(s.partial.String(), "\r")
	s.partial.Reset()

	return line, true
}
