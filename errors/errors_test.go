package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIncludesCallerLocation(t *testing.T) {
	err := New("vault %s is missing", "notes")
	assert.Regexp(t, `^\[errors_test\.go:\d+\] vault notes is missing$`, err.Error())
}

func TestWrapfKeepsChain(t *testing.T) {
	base := fmt.Errorf("lookup failed: %w", ErrNotFound)
	err := Wrapf(base, "resolving %s", "a.md")

	assert.True(t, Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "resolving a.md: lookup failed: not found")
	assert.Nil(t, Wrapf(nil, "ignored"))
}
