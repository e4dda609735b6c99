package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckIfWon_AllLines(t *testing.T) {
	for _, line := range lines {
		for _, mark := range []Mark{MarkX, MarkO} {
			other := MarkO
			if mark == MarkO {
				other = MarkX
			}
			var b Board
			// 其余格子交替填入，但不构成另一条线
			for i := range b {
				if i%2 == 0 {
					b[i] = MarkEmpty
				} else {
					b[i] = other
				}
			}
			for _, i := range line {
				b[i] = mark
			}
			state, winner := b.CheckIfWon()
			assert.Equal(t, Won, state, "line %v", line)
			assert.Equal(t, mark, winner, "line %v", line)
		}
	}
}

func TestCheckIfWon_Tie(t *testing.T) {
	// x o x
	// x o o
	// o x x
	b := Board{MarkX, MarkO, MarkX, MarkX, MarkO, MarkO, MarkO, MarkX, MarkX}
	state, winner := b.CheckIfWon()
	assert.Equal(t, Tie, state)
	assert.Equal(t, MarkEmpty, winner)
}

func TestCheckIfWon_StillPlaying(t *testing.T) {
	var b Board
	state, _ := b.CheckIfWon()
	assert.Equal(t, StillPlaying, state)

	b = Board{MarkX, MarkO, MarkX, MarkX, MarkO, MarkO, MarkO, MarkX, MarkEmpty}
	state, _ = b.CheckIfWon()
	assert.Equal(t, StillPlaying, state)
}

func TestPlace(t *testing.T) {
	var b Board
	require.NoError(t, b.Place(1, 0, MarkX))
	assert.Equal(t, MarkX, b[1])

	require.NoError(t, b.Place(0, 2, MarkO))
	assert.Equal(t, MarkO, b[6])

	before := b
	assert.ErrorIs(t, b.Place(1, 0, MarkO), ErrCellTaken)
	assert.Equal(t, before, b)

	assert.ErrorIs(t, b.Place(3, 0, MarkO), ErrOutOfBounds)
	assert.ErrorIs(t, b.Place(0, -1, MarkO), ErrOutOfBounds)
	assert.Equal(t, before, b)
}

func TestBoard_BytesAndString(t *testing.T) {
	b := Board{MarkX, MarkEmpty, MarkO}
	bytes := b.Bytes()
	assert.Equal(t, byte('x'), bytes[0])
	assert.Equal(t, byte(0), bytes[1])
	assert.Equal(t, byte('o'), bytes[2])
	assert.Equal(t, "x.o......", b.String())
}
