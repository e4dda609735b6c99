package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerRecord_WinRate(t *testing.T) {
	assert.Equal(t, 0.0, PlayerRecord{}.WinRate())

	p := PlayerRecord{Name: "Alice", GamesWon: 3, GamesLost: 1}
	assert.Equal(t, uint32(4), p.GamesPlayed())
	assert.InDelta(t, 75.0, p.WinRate(), 1e-9)
}

func TestScoreOf(t *testing.T) {
	p := PlayerRecord{Name: "Bob", GamesWon: 2, GamesLost: 1, GamesTied: 1}
	assert.Equal(t, 2.0, ScoreOf(p, LeaderboardWins))
	assert.Equal(t, 1.0, ScoreOf(p, LeaderboardTies))
	assert.InDelta(t, 50.0, ScoreOf(p, LeaderboardWinRate), 1e-9)
}

func TestParseLeaderboardType(t *testing.T) {
	lt, ok := ParseLeaderboardType("")
	assert.True(t, ok)
	assert.Equal(t, LeaderboardWins, lt)

	lt, ok = ParseLeaderboardType("winrate")
	assert.True(t, ok)
	assert.Equal(t, LeaderboardWinRate, lt)

	_, ok = ParseLeaderboardType("kills")
	assert.False(t, ok)
}

func TestLeaderboardKey(t *testing.T) {
	assert.Equal(t, LeaderboardWinsKey, LeaderboardKey(LeaderboardWins))
	assert.Equal(t, LeaderboardTiesKey, LeaderboardKey(LeaderboardTies))
	assert.Equal(t, LeaderboardWinRateKey, LeaderboardKey(LeaderboardWinRate))
}

func TestMatchOutcome_Decided(t *testing.T) {
	assert.True(t, OutcomeWin.Decided())
	assert.True(t, OutcomeTie.Decided())
	assert.True(t, OutcomeForfeit.Decided())
	assert.False(t, OutcomeTimeout.Decided())
	assert.False(t, OutcomeAbandoned.Decided())
}

func TestActivePlayer_JSONState(t *testing.T) {
	data, err := json.Marshal(ActivePlayer{Slot: 1, Name: "Alice", State: StateReceivedInvitation})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"received_invitation"`)
}
