package wall

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeClips(n int) []Clip {
	clips := make([]Clip, n)
	for i := range clips {
		clips[i] = Clip{ItemID: uint(i + 1), MarkerID: fmt.Sprintf("m%d", i+1)}
	}
	return clips
}

func onScreen(slots []Slot) map[int]string {
	out := map[int]string{}
	for _, s := range slots {
		out[s.Tile] = s.Clip.MarkerID
	}
	return out
}

func TestNewSequencer_NoClips(t *testing.T) {
	_, err := NewSequencer(nil, 1)
	assert.ErrorIs(t, err, ErrNoClips)
}

func TestSequencer_StartDistinct(t *testing.T) {
	seq, err := NewSequencer(makeClips(10), 42)
	require.NoError(t, err)

	slots := seq.Start()
	require.Len(t, slots, Tiles)
	seen := map[string]bool{}
	for _, s := range slots {
		assert.False(t, seen[s.Clip.MarkerID], "clip %s dealt twice", s.Clip.MarkerID)
		seen[s.Clip.MarkerID] = true
	}
}

func TestSequencer_NextRules(t *testing.T) {
	seq, err := NewSequencer(makeClips(7), 7)
	require.NoError(t, err)
	seq.Start()

	for i := 0; i < 200; i++ {
		tile := i % Tiles
		before := onScreen(seq.Current())
		clip, err := seq.Next(tile)
		require.NoError(t, err)

		assert.NotEqual(t, before[tile], clip.MarkerID, "tile %d repeated its clip", tile)
		for other, id := range before {
			if other != tile {
				assert.NotEqual(t, id, clip.MarkerID, "clip already on tile %d", other)
			}
		}
	}
}

func TestSequencer_Deterministic(t *testing.T) {
	a, _ := NewSequencer(makeClips(12), 99)
	b, _ := NewSequencer(makeClips(12), 99)

	assert.Equal(t, a.Start(), b.Start())
	for i := 0; i < 20; i++ {
		ca, _ := a.Next(i % Tiles)
		cb, _ := b.Next(i % Tiles)
		assert.Equal(t, ca, cb)
	}
}

func TestSequencer_CoversDeckBeforeRepeat(t *testing.T) {
	seq, _ := NewSequencer(makeClips(20), 3)
	seen := map[string]bool{}
	for _, s := range seq.Start() {
		seen[s.Clip.MarkerID] = true
	}
	for i := 0; i < 16; i++ {
		c, _ := seq.Next(i % Tiles)
		assert.False(t, seen[c.MarkerID], "clip %s repeated before deck ran out", c.MarkerID)
		seen[c.MarkerID] = true
	}
	assert.Len(t, seen, 20)
}

func TestSequencer_ShortPlaylists(t *testing.T) {
	one, _ := NewSequencer(makeClips(1), 1)
	for _, s := range one.Start() {
		assert.Equal(t, "m1", s.Clip.MarkerID)
	}
	c, err := one.Next(2)
	require.NoError(t, err)
	assert.Equal(t, "m1", c.MarkerID)

	// With exactly four clips the only free clip is the tile's own.
	four, _ := NewSequencer(makeClips(4), 1)
	before := onScreen(four.Start())
	c, err = four.Next(0)
	require.NoError(t, err)
	assert.Equal(t, before[0], c.MarkerID)
}

func TestSequencer_InvalidTile(t *testing.T) {
	seq, _ := NewSequencer(makeClips(5), 1)
	_, err := seq.Next(Tiles)
	assert.ErrorIs(t, err, ErrInvalidTile)
	_, err = seq.Next(-1)
	assert.ErrorIs(t, err, ErrInvalidTile)
}

func TestNewWall(t *testing.T) {
	w, err := NewWall("w1", "p1", makeClips(3), 5)
	require.NoError(t, err)
	assert.Equal(t, "p1", w.PlaylistID)
	assert.Equal(t, 3, w.Len())
	assert.Len(t, w.Start(), Tiles)

	_, err = NewWall("w2", "p1", nil, 5)
	assert.ErrorIs(t, err, ErrNoClips)
}
