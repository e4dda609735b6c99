package playerdb

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSnapshots_SavesPeriodically(t *testing.T) {
	path, backup := tempPaths(t)
	s, err := Open(path, backup)
	require.NoError(t, err)
	s.RecordWin("Alice")

	snap, err := StartSnapshots(s, 20*time.Millisecond)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		f, err := os.Open(path)
		if err != nil {
			return false
		}
		defer f.Close()
		records, err := ReadRecords(f)
		return err == nil && len(records) == 1 && records[0].GamesWon == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, snap.Stop())
}
