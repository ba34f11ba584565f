package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAfter_RunsOnDueTick(t *testing.T) {
	s := New(20, zerolog.Nop())
	var ranAt uint64
	task := s.After(3, func() { ranAt = s.CurrentTick() })

	s.Step()
	s.Step()
	assert.False(t, task.Done())
	s.Step()
	assert.True(t, task.Done())
	assert.Equal(t, uint64(3), ranAt)
	assert.False(t, task.Cancel(), "cancel after run is a no-op")
}

func TestTask_CancelBeforeDue(t *testing.T) {
	s := New(20, zerolog.Nop())
	ran := false
	task := s.After(1, func() { ran = true })
	require.True(t, task.Cancel())
	assert.False(t, task.Cancel())
	s.Step()
	assert.False(t, ran)
	assert.True(t, task.Cancelled())
	assert.Equal(t, 0, s.Pending())
}

func TestStep_OrderSubmittedHooksDelayed(t *testing.T) {
	s := New(20, zerolog.Nop())
	var order []string
	s.After(1, func() { order = append(order, "delayed-a") })
	s.After(1, func() { order = append(order, "delayed-b") })
	s.OnTick(func(uint64) { order = append(order, "hook") })
	s.Submit(func() { order = append(order, "submitted") })
	s.Step()
	assert.Equal(t, []string{"submitted", "hook", "delayed-a", "delayed-b"}, order)
}

func TestStep_RecoversPanics(t *testing.T) {
	s := New(20, zerolog.Nop())
	ok := false
	s.After(1, func() { panic("boom") })
	s.After(1, func() { ok = true })
	s.Step()
	assert.True(t, ok)
}

func TestCancelAll(t *testing.T) {
	s := New(20, zerolog.Nop())
	a := s.After(5, func() {})
	b := s.After(9, func() {})
	assert.Equal(t, 2, s.CancelAll())
	assert.True(t, a.Cancelled())
	assert.True(t, b.Cancelled())
}

func TestRun_StopsOnContext(t *testing.T) {
	s := New(200, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, s.CurrentTick(), uint64(0))
}
