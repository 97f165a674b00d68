package logging

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesToFile(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	file := filepath.Join(t.TempDir(), "nested", "app.log")

	closer := Setup(file)
	log.Printf("[Test] hello from the checkout")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[Test] hello from the checkout")
}

func TestSetup_StdoutOnly(t *testing.T) {
	defer log.SetOutput(os.Stderr)

	closer := Setup("")

	assert.NoError(t, closer.Close())
}
