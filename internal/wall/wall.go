package wall

// Wall is a sequencer bound to the playlist it plays.
type Wall struct {
	ID         string
	PlaylistID string
	*Sequencer
}

func NewWall(id, playlistID string, clips []Clip, seed uint64) (*Wall, error) {
	seq, err := NewSequencer(clips, seed)
	if err != nil {
		return nil, err
	}
	return &Wall{ID: id, PlaylistID: playlistID, Sequencer: seq}, nil
}
