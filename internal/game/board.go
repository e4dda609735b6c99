// board.go

package game

import (
	"errors"

	"github.com/jacl-coder/TicTacTwo-Server/internal/protocol"
)

// Mark 棋盘格子的值
type Mark byte

const (
	MarkEmpty Mark = 0
	MarkX     Mark = 'x'
	MarkO     Mark = 'o'
)

func (m Mark) String() string {
	switch m {
	case MarkX:
		return "X"
	case MarkO:
		return "O"
	}
	return "-"
}

// BoardState 胜负判定结果
type BoardState int

const (
	StillPlaying BoardState = iota
	Won
	Tie
)

var (
	// ErrCellTaken 格子已被占用
	ErrCellTaken = errors.New("格子已被占用")
	// ErrOutOfBounds 坐标超出棋盘
	ErrOutOfBounds = errors.New("坐标超出棋盘")
)

// 所有可连成一线的格子下标：先行、再列、最后对角线
var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Board 3x3 棋盘，行优先，下标 = row*3 + col
type Board [protocol.BoardCells]Mark

// Place 在空格子上落子
func (b *Board) Place(col, row int, m Mark) error {
	if col < 0 || col > 2 || row < 0 || row > 2 {
		return ErrOutOfBounds
	}
	i := row*3 + col
	if b[i] != MarkEmpty {
		return ErrCellTaken
	}
	b[i] = m
	return nil
}

// CheckIfWon 判定胜负，返回状态和获胜方
func (b *Board) CheckIfWon() (BoardState, Mark) {
	for _, l := range lines {
		m := b[l[0]]
		if m != MarkEmpty && b[l[1]] == m && b[l[2]] == m {
			return Won, m
		}
	}
	for _, m := range b {
		if m == MarkEmpty {
			return StillPlaying, MarkEmpty
		}
	}
	return Tie, MarkEmpty
}

// Bytes 棋盘快照，用于 ItsYourTurn 消息
func (b *Board) Bytes() [protocol.BoardCells]byte {
	var out [protocol.BoardCells]byte
	for i, m := range b {
		out[i] = byte(m)
	}
	return out
}

// String 棋盘的文本形式，空格子为 '.'
func (b *Board) String() string {
	out := make([]byte, len(b))
	for i, m := range b {
		if m == MarkEmpty {
			out[i] = '.'
		} else {
			out[i] = byte(m)
		}
	}
	return string(out)
}
