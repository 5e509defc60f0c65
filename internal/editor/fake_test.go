package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errUpstream = errors.New("upstream unavailable")

type updateCall struct {
	ID    string
	Input MarkerInput
}

// fakeUpstream is an in-memory marker service.
type fakeUpstream struct {
	mu       sync.Mutex
	markers  []Marker
	nextID   int
	creates  []MarkerInput
	updates  []updateCall
	destroys []string
	loads    int

	failCreate  error
	failUpdate  map[string]error
	failDestroy error
	refuseDel   bool

	// gate, when set, blocks mutations until it is closed. entered is
	// signalled as each mutation reaches the gate.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeUpstream(markers ...Marker) *fakeUpstream {
	return &fakeUpstream{markers: markers, nextID: 100, failUpdate: map[string]error{}}
}

func (f *fakeUpstream) wait(ctx context.Context) error {
	if f.gate == nil {
		return nil
	}
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeUpstream) SceneMarkers(ctx context.Context, sceneID string) ([]Marker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	out := make([]Marker, len(f.markers))
	copy(out, f.markers)
	return out, nil
}

func (f *fakeUpstream) CreateMarker(ctx context.Context, in MarkerInput) (Marker, error) {
	if err := f.wait(ctx); err != nil {
		return Marker{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, in)
	if f.failCreate != nil {
		return Marker{}, f.failCreate
	}
	f.nextID++
	m := markerFromInput(fmt.Sprint(f.nextID), in)
	f.markers = append(f.markers, m)
	return m, nil
}

func (f *fakeUpstream) UpdateMarker(ctx context.Context, id string, in MarkerInput) (Marker, error) {
	if err := f.wait(ctx); err != nil {
		return Marker{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{ID: id, Input: in})
	if err := f.failUpdate[id]; err != nil {
		return Marker{}, err
	}
	m := markerFromInput(id, in)
	for i := range f.markers {
		if f.markers[i].ID == id {
			f.markers[i] = m
		}
	}
	return m, nil
}

func (f *fakeUpstream) DestroyMarker(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroys = append(f.destroys, id)
	if f.failDestroy != nil {
		return false, f.failDestroy
	}
	if f.refuseDel {
		return false, nil
	}
	for i := range f.markers {
		if f.markers[i].ID == id {
			f.markers = append(f.markers[:i], f.markers[i+1:]...)
			break
		}
	}
	return true, nil
}

func (f *fakeUpstream) counts() (creates, updates, destroys int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates), len(f.updates), len(f.destroys)
}

func markerFromInput(id string, in MarkerInput) Marker {
	m := Marker{ID: id, Title: in.Title, Seconds: in.Seconds, EndSeconds: in.EndSeconds}
	if in.PrimaryTagID != nil {
		m.PrimaryTag = &Tag{ID: *in.PrimaryTagID, Name: "tag " + *in.PrimaryTagID}
	}
	for _, t := range in.TagIDs {
		m.Tags = append(m.Tags, Tag{ID: t, Name: "tag " + t})
	}
	return m
}

type countingScheduler struct {
	mu    sync.Mutex
	calls int
}

func (c *countingScheduler) Schedule() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

func (c *countingScheduler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type recordedEvent struct {
	SceneID string
	Kind    string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(sceneID, kind string, payload any) {
	p.mu.Lock()
	p.events = append(p.events, recordedEvent{SceneID: sceneID, Kind: kind, Payload: payload})
	p.mu.Unlock()
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

func f64(v float64) *float64 { return &v }
func str(v string) *string { return &v }

func marker(id, title string, start, end float64, primary string, tags ...string) Marker {
	m := Marker{ID: id, Title: title, Seconds: start, EndSeconds: f64(end)}
	if primary != "" {
		m.PrimaryTag = &Tag{ID: primary, Name: "tag " + primary}
	}
	for _, t := range tags {
		m.Tags = append(m.Tags, Tag{ID: t, Name: "tag " + t})
	}
	return m
}
