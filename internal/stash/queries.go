package stash

const markerFields = `
  id
  title
  seconds
  end_seconds
  primary_tag { id name }
  tags { id name }
  scene { id title }
  stream
  preview
  screenshot
  created_at
`

const performerFields = `
  id
  name
  image_path
  scene_count
  scene_marker_count
`

const findSceneQuery = `query FindScene($id: ID!) {
  findScene(id: $id) {
    id
    title
    paths { stream screenshot }
    files { duration }
    performers {` + performerFields + `}
    tags { id name }
    scene_markers {` + markerFields + `}
  }
}`

const findSceneMarkersQuery = `query FindSceneMarkers($filter: FindFilterType, $scene_marker_filter: SceneMarkerFilterType) {
  findSceneMarkers(filter: $filter, scene_marker_filter: $scene_marker_filter) {
    count
    scene_markers {` + markerFields + `}
  }
}`

const findPerformersQuery = `query FindPerformers($filter: FindFilterType) {
  findPerformers(filter: $filter) {
    count
    performers {` + performerFields + `}
  }
}`

const findPerformerQuery = `query FindPerformer($id: ID!) {
  findPerformer(id: $id) {` + performerFields + `}
}`

const allTagsQuery = `query AllTags {
  findTags(filter: { per_page: -1, sort: "name", direction: ASC }) {
    tags { id name }
  }
}`

const createMarkerMutation = `mutation SceneMarkerCreate($input: SceneMarkerCreateInput!) {
  sceneMarkerCreate(input: $input) {` + markerFields + `}
}`

const updateMarkerMutation = `mutation SceneMarkerUpdate($input: SceneMarkerUpdateInput!) {
  sceneMarkerUpdate(input: $input) {` + markerFields + `}
}`

const destroyMarkerMutation = `mutation SceneMarkerDestroy($id: ID!) {
  sceneMarkerDestroy(id: $id)
}`

const updateSceneTagsMutation = `mutation SceneUpdate($input: SceneUpdateInput!) {
  sceneUpdate(input: $input) {
    id
    title
    tags { id name }
  }
}`
