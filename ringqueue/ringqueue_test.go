package ringqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFO(t *testing.T) {
	q := New[int](3)
	assert.True(t, q.Empty())
	assert.Equal(t, 3, q.Cap())

	_, err := q.Pop()
	require.ErrorIs(t, err, ErrEmpty)

	require.NoError(t, q.Push(1))
	require.NoError(t, q.Push(2))
	require.NoError(t, q.Push(3))
	assert.True(t, q.Full())
	require.ErrorIs(t, q.Push(4), ErrFull)
	assert.Equal(t, 3, q.Len())

	v, err := q.Pop()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, q.Push(4))
	assert.Equal(t, []int{2, 3, 4}, q.Items())

	v, err = q.Peek()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 3, q.Len())
}

func TestWrapAround(t *testing.T) {
	q := New[string](2)

	for i := 0; i < 10; i++ {
		s := string(rune('a' + i))
		require.NoError(t, q.Push(s))
		if q.Len() == 2 {
			v, err := q.Pop()
			require.NoError(t, err)
			assert.Equal(t, string(rune('a'+i-1)), v)
		}
	}
	assert.Equal(t, []string{"j"}, q.Items())

	q.Reset()
	assert.True(t, q.Empty())
	assert.Empty(t, q.Items())
}

func TestMinimumSize(t *testing.T) {
	q := New[byte](0)
	require.NoError(t, q.Push(1))
	require.ErrorIs(t, q.Push(2), ErrFull)
}
