package stash

import (
	"context"
	"fmt"
)

func (c *HTTPClient) FindScene(ctx context.Context, id string) (*Scene, error) {
	var data struct {
		FindScene *Scene `json:"findScene"`
	}
	if err := c.do(ctx, "FindScene", findSceneQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	return data.FindScene, nil
}

func (c *HTTPClient) FindSceneMarkers(ctx context.Context, filter MarkerFilter) (*MarkerPage, error) {
	markerFilter := map[string]any{}
	if len(filter.SceneIDs) > 0 {
		markerFilter["scenes"] = map[string]any{"value": filter.SceneIDs, "modifier": "INCLUDES"}
	}
	if len(filter.PerformerIDs) > 0 {
		markerFilter["performers"] = map[string]any{"value": filter.PerformerIDs, "modifier": "INCLUDES_ALL"}
	}
	if len(filter.TagIDs) > 0 {
		markerFilter["tags"] = map[string]any{"value": filter.TagIDs, "modifier": "INCLUDES_ALL", "depth": 0}
	}

	find := filter.Find
	if find.PerPage == 0 {
		find.PerPage = -1
	}

	vars := map[string]any{
		"filter":              find,
		"scene_marker_filter": markerFilter,
	}

	var data struct {
		FindSceneMarkers MarkerPage `json:"findSceneMarkers"`
	}
	if err := c.do(ctx, "FindSceneMarkers", findSceneMarkersQuery, vars, &data); err != nil {
		return nil, err
	}
	return &data.FindSceneMarkers, nil
}

func (c *HTTPClient) FindPerformers(ctx context.Context, filter FindFilter) (*PerformerPage, error) {
	if filter.Sort == "" {
		filter.Sort = "name"
	}
	var data struct {
		FindPerformers PerformerPage `json:"findPerformers"`
	}
	if err := c.do(ctx, "FindPerformers", findPerformersQuery, map[string]any{"filter": filter}, &data); err != nil {
		return nil, err
	}
	return &data.FindPerformers, nil
}

// FindPerformer returns nil, nil when the performer does not exist.
func (c *HTTPClient) FindPerformer(ctx context.Context, id string) (*Performer, error) {
	var data struct {
		FindPerformer *Performer `json:"findPerformer"`
	}
	if err := c.do(ctx, "FindPerformer", findPerformerQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	return data.FindPerformer, nil
}

func (c *HTTPClient) AllTags(ctx context.Context) ([]Tag, error) {
	var data struct {
		FindTags struct {
			Tags []Tag `json:"tags"`
		} `json:"findTags"`
	}
	if err := c.do(ctx, "AllTags", allTagsQuery, nil, &data); err != nil {
		return nil, err
	}
	return data.FindTags.Tags, nil
}

func (c *HTTPClient) CreateMarker(ctx context.Context, in MarkerInput) (*SceneMarker, error) {
	if in.SceneID == "" {
		return nil, fmt.Errorf("create marker: scene id is required")
	}
	in.TagIDs = nonNil(in.TagIDs)
	var data struct {
		SceneMarkerCreate *SceneMarker `json:"sceneMarkerCreate"`
	}
	if err := c.do(ctx, "SceneMarkerCreate", createMarkerMutation, map[string]any{"input": in}, &data); err != nil {
		return nil, err
	}
	if data.SceneMarkerCreate == nil {
		return nil, fmt.Errorf("create marker: empty response")
	}
	return data.SceneMarkerCreate, nil
}

func (c *HTTPClient) UpdateMarker(ctx context.Context, id string, in MarkerInput) (*SceneMarker, error) {
	input := map[string]any{
		"id":             id,
		"title":          in.Title,
		"seconds":        in.Seconds,
		"end_seconds":    in.EndSeconds,
		"primary_tag_id": in.PrimaryTagID,
		"tag_ids":        nonNil(in.TagIDs),
	}
	var data struct {
		SceneMarkerUpdate *SceneMarker `json:"sceneMarkerUpdate"`
	}
	if err := c.do(ctx, "SceneMarkerUpdate", updateMarkerMutation, map[string]any{"input": input}, &data); err != nil {
		return nil, err
	}
	if data.SceneMarkerUpdate == nil {
		return nil, fmt.Errorf("update marker %s: empty response", id)
	}
	return data.SceneMarkerUpdate, nil
}

func (c *HTTPClient) DestroyMarker(ctx context.Context, id string) (bool, error) {
	var data struct {
		SceneMarkerDestroy bool `json:"sceneMarkerDestroy"`
	}
	if err := c.do(ctx, "SceneMarkerDestroy", destroyMarkerMutation, map[string]any{"id": id}, &data); err != nil {
		return false, err
	}
	return data.SceneMarkerDestroy, nil
}

func (c *HTTPClient) UpdateSceneTags(ctx context.Context, sceneID string, tagIDs []string) (*Scene, error) {
	input := map[string]any{"id": sceneID, "tag_ids": nonNil(tagIDs)}
	var data struct {
		SceneUpdate *Scene `json:"sceneUpdate"`
	}
	if err := c.do(ctx, "SceneUpdate", updateSceneTagsMutation, map[string]any{"input": input}, &data); err != nil {
		return nil, err
	}
	return data.SceneUpdate, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
