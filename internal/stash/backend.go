package stash

import (
	"context"
	"fmt"

	"github.com/markerdeck/markerdeck/internal/editor"
)

// MarkerBackend adapts a Client to the editor's Upstream interface.
type MarkerBackend struct {
	client Client
}

func NewMarkerBackend(client Client) *MarkerBackend {
	return &MarkerBackend{client: client}
}

func (b *MarkerBackend) SceneMarkers(ctx context.Context, sceneID string) ([]editor.Marker, error) {
	scene, err := b.client.FindScene(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	if scene == nil {
		return nil, fmt.Errorf("scene %s: %w", sceneID, ErrNotFound)
	}
	out := make([]editor.Marker, 0, len(scene.SceneMarkers))
	for _, m := range scene.SceneMarkers {
		out = append(out, toEditorMarker(m))
	}
	return out, nil
}

func (b *MarkerBackend) CreateMarker(ctx context.Context, in editor.MarkerInput) (editor.Marker, error) {
	m, err := b.client.CreateMarker(ctx, toStashInput(in))
	if err != nil {
		return editor.Marker{}, err
	}
	return toEditorMarker(*m), nil
}

func (b *MarkerBackend) UpdateMarker(ctx context.Context, id string, in editor.MarkerInput) (editor.Marker, error) {
	m, err := b.client.UpdateMarker(ctx, id, toStashInput(in))
	if err != nil {
		return editor.Marker{}, err
	}
	return toEditorMarker(*m), nil
}

func (b *MarkerBackend) DestroyMarker(ctx context.Context, id string) (bool, error) {
	return b.client.DestroyMarker(ctx, id)
}

func toStashInput(in editor.MarkerInput) MarkerInput {
	return MarkerInput{
		SceneID:      in.SceneID,
		Title:        in.Title,
		Seconds:      in.Seconds,
		EndSeconds:   in.EndSeconds,
		PrimaryTagID: in.PrimaryTagID,
		TagIDs:       in.TagIDs,
	}
}

func toEditorMarker(m SceneMarker) editor.Marker {
	out := editor.Marker{
		ID:         m.ID,
		Title:      m.Title,
		Seconds:    m.Seconds,
		EndSeconds: m.EndSeconds,
		Tags:       make([]editor.Tag, 0, len(m.Tags)),
	}
	if m.PrimaryTag != nil {
		out.PrimaryTag = &editor.Tag{ID: m.PrimaryTag.ID, Name: m.PrimaryTag.Name}
	}
	for _, t := range m.Tags {
		out.Tags = append(out.Tags, editor.Tag{ID: t.ID, Name: t.Name})
	}
	return out
}
