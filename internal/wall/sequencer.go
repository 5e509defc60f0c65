// Package wall sequences playlist clips across the four tiles of a 2x2
// video wall.
package wall

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

const Tiles = 4

var (
	ErrNoClips     = errors.New("wall needs at least one clip")
	ErrInvalidTile = errors.New("invalid tile")
)

type Clip struct {
	ItemID       uint     `json:"item_id"`
	MarkerID     string   `json:"marker_id"`
	Title        string   `json:"title"`
	SceneID      string   `json:"scene_id"`
	StartSeconds float64  `json:"start_seconds"`
	EndSeconds   *float64 `json:"end_seconds,omitempty"`
	Stream       string   `json:"stream,omitempty"`
	Screenshot   string   `json:"screenshot,omitempty"`
}

type Slot struct {
	Tile int  `json:"tile"`
	Clip Clip `json:"clip"`
}

// Sequencer deals clips from a shuffled deck. A tile never shows a clip
// that is on another tile, and never repeats its previous clip, unless the
// playlist is too short to avoid it.
type Sequencer struct {
	mu      sync.Mutex
	clips   []Clip
	rng     *rand.Rand
	deck    []int
	current [Tiles]int
}

func NewSequencer(clips []Clip, seed uint64) (*Sequencer, error) {
	if len(clips) == 0 {
		return nil, ErrNoClips
	}
	s := &Sequencer{
		clips: append([]Clip(nil), clips...),
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for i := range s.current {
		s.current[i] = -1
	}
	return s, nil
}

// Start deals a clip to every tile.
func (s *Sequencer) Start() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.current {
		s.current[i] = -1
	}
	slots := make([]Slot, 0, Tiles)
	for tile := range Tiles {
		idx := s.drawLocked(tile)
		s.current[tile] = idx
		slots = append(slots, Slot{Tile: tile, Clip: s.clips[idx]})
	}
	return slots
}

// Next replaces the clip on tile and returns the new one.
func (s *Sequencer) Next(tile int) (Clip, error) {
	if tile < 0 || tile >= Tiles {
		return Clip{}, fmt.Errorf("%w %d", ErrInvalidTile, tile)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.drawLocked(tile)
	s.current[tile] = idx
	return s.clips[idx], nil
}

// Current returns the clips on screen.
func (s *Sequencer) Current() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := make([]Slot, 0, Tiles)
	for tile, idx := range s.current {
		if idx >= 0 {
			slots = append(slots, Slot{Tile: tile, Clip: s.clips[idx]})
		}
	}
	return slots
}

func (s *Sequencer) Len() int { return len(s.clips) }

// drawLocked picks the next clip for tile, relaxing the rules only when
// no clip satisfies them.
func (s *Sequencer) drawLocked(tile int) int {
	onOther := func(idx int) bool {
		for t, cur := range s.current {
			if t != tile && cur == idx {
				return true
			}
		}
		return false
	}
	rules := []func(int) bool{
		func(idx int) bool { return !onOther(idx) && idx != s.current[tile] },
		func(idx int) bool { return !onOther(idx) },
		func(int) bool { return true },
	}

	for _, ok := range rules {
		if idx, found := s.takeFromDeck(ok); found {
			return idx
		}
		if !s.anyClip(ok) {
			continue
		}
		s.reshuffle()
		if idx, found := s.takeFromDeck(ok); found {
			return idx
		}
	}
	// Unreachable with at least one clip.
	return 0
}

func (s *Sequencer) takeFromDeck(ok func(int) bool) (int, bool) {
	for i, idx := range s.deck {
		if ok(idx) {
			s.deck = append(s.deck[:i], s.deck[i+1:]...)
			return idx, true
		}
	}
	return 0, false
}

func (s *Sequencer) anyClip(ok func(int) bool) bool {
	for i := range s.clips {
		if ok(i) {
			return true
		}
	}
	return false
}

func (s *Sequencer) reshuffle() {
	s.deck = s.deck[:0]
	for i := range s.clips {
		s.deck = append(s.deck, i)
	}
	s.rng.Shuffle(len(s.deck), func(i, j int) { s.deck[i], s.deck[j] = s.deck[j], s.deck[i] })
}
