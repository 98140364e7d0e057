package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackPushPop(t *testing.T) {
	t.Parallel()
	s := NewStack()
	require.NoError(t, s.Push(VNum(1)))
	require.NoError(t, s.Push(VNum(2)))
	assert.Equal(t, 2, s.Size())

	top, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, VNum(2), top)

	_, err = s.Pop()
	require.NoError(t, err)
	_, err = s.Pop()
	assert.Error(t, err)
}

func TestStackPeek(t *testing.T) {
	t.Parallel()
	s := NewStack()
	require.NoError(t, s.Push(VNum(1)))
	require.NoError(t, s.Push(VNum(2)))

	val, err := s.Peek(0)
	require.NoError(t, err)
	assert.Equal(t, VNum(2), val)

	val, err = s.Peek(1)
	require.NoError(t, err)
	assert.Equal(t, VNum(1), val)

	_, err = s.Peek(2)
	assert.Error(t, err)
}

func TestStackOverflow(t *testing.T) {
	t.Parallel()
	s := NewStack()
	for i := 0; i < StackMax; i++ {
		require.NoError(t, s.Push(VNum(float64(i))))
	}
	assert.Error(t, s.Push(VNil{}))

	s.Reset()
	assert.Equal(t, 0, s.Size())
	assert.NoError(t, s.Push(VNil{}))
}

func TestStackSlotAddressing(t *testing.T) {
	t.Parallel()
	s := NewStack()
	require.NoError(t, s.Push(VNum(1)))
	require.NoError(t, s.Push(VNum(2)))
	s.SetAt(0, VNum(42))
	assert.Equal(t, VNum(42), s.At(0))
	assert.Equal(t, VNum(2), s.At(1))
}
