package terminal

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTerminalRejectsNonFiles(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestIsTerminalRejectsRegularFiles(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	assert.False(t, IsTerminal(f))
}
