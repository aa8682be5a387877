package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRunID_ReturnsSameID(t *testing.T) {
	gen := NewFixedRunID("run-123")

	assert.Equal(t, "run-123", gen.Generate())
	assert.Equal(t, "run-123", gen.Generate())
}

func TestFixedRunID_EmptyDefault(t *testing.T) {
	assert.Equal(t, "test-run-default", NewFixedRunID("").Generate())
}

func TestFixedRunID_ThreadSafe(t *testing.T) {
	gen := NewFixedRunID("shared")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "shared", gen.Generate())
			}
		}()
	}
	wg.Wait()
}

func TestQuietLogger(t *testing.T) {
	logger := QuietLogger()
	logger.Error("dropped", "key", "value")
	assert.NotNil(t, logger)
}
