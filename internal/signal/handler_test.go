package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_FireCancelsContext(t *testing.T) {
	h := NewHandler(context.Background())
	defer h.Stop()

	assert.False(t, h.WasInterrupted())
	h.fire()
	h.fire()

	require.ErrorIs(t, h.Context().Err(), context.Canceled)
	assert.True(t, h.WasInterrupted())
	select {
	case <-h.Interrupted():
	default:
		t.Fatal("interrupted channel should be closed")
	}
}

func TestHandler_StopIsNotAnInterrupt(t *testing.T) {
	h := NewHandler(context.Background())
	h.Stop()
	h.Stop()

	require.ErrorIs(t, h.Context().Err(), context.Canceled)
	assert.False(t, h.WasInterrupted())
}

func TestHandler_ParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	h := NewHandler(parent)
	defer h.Stop()

	cancel()
	select {
	case <-h.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context should follow its parent")
	}
	assert.False(t, h.WasInterrupted())
}
