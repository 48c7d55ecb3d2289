package ui

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerWritesMessageAndStops(t *testing.T) {
	var out syncBuffer
	s := newSpinner(&out, "loading supply")
	s.Start()
	s.Stop()
	s.Stop() // second stop is a no-op

	assert.Contains(t, out.String(), "loading supply")
	assert.True(t, strings.HasSuffix(out.String(), "\r"), "line cleared on stop")
}

func TestConfirmFrom(t *testing.T) {
	cases := map[string]bool{
		"y\n":     true,
		"YES\n":   true,
		" yes ":   true,
		"n\n":     false,
		"\n":      false,
		"":        false,
		"maybe\n": false,
	}
	for in, want := range cases {
		var w bytes.Buffer
		got := ConfirmFrom(strings.NewReader(in), &w, "send?")
		assert.Equal(t, want, got, "input %q", in)
		assert.Contains(t, w.String(), "send? [y/N]")
	}
}
