package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/talksyhq/talksy/internal/apperr"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(apperr.Conflict("taken")))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("plain")))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(nil))

	// Kind survives wrapping
	wrapped := fmt.Errorf("handler: %w", apperr.Auth("nope"))
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(wrapped))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "taken", apperr.Message(apperr.Conflict("taken")))

	// Untagged and internal errors collapse to a generic message
	assert.Equal(t, "Internal server error", apperr.Message(errors.New("pq: connection refused")))
	assert.Equal(t, "Internal server error", apperr.Message(apperr.Wrap(apperr.KindInternal, "db exploded", errors.New("boom"))))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("smtp down")
	err := apperr.Wrap(apperr.KindDelivery, "send failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, apperr.Is(err, apperr.KindDelivery))
}
