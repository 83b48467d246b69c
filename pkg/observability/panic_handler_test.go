package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	assert.NotPanics(t, func() {
		defer RecoverPanic(logger, "purge job")
		panic("boom")
	})

	assert.Contains(t, buf.String(), "PANIC recovered")
	assert.Contains(t, buf.String(), "purge job")
	assert.Contains(t, buf.String(), "boom")
}

func TestRecoverPanicWithCallback(t *testing.T) {
	called := false
	assert.NotPanics(t, func() {
		defer RecoverPanicWithCallback(NewLogger(ErrorLevel, &bytes.Buffer{}), "worker", func() { called = true })
		panic("boom")
	})
	assert.True(t, called)

	called = false
	func() {
		defer RecoverPanicWithCallback(nil, "worker", func() { called = true })
	}()
	assert.False(t, called)
}

func TestMustRecover(t *testing.T) {
	assert.NoError(t, MustRecover(nil))
	assert.EqualError(t, MustRecover("bad"), "panic: bad")
}
