package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/nfnt/resize"

	"github.com/markerdeck/markerdeck/internal/stash"
)

const jpegQuality = 85

// maxScreenshotBytes caps the upstream image size read into memory.
const maxScreenshotBytes = 32 << 20

// fillTimeout bounds a cache fill, which outlives the request that
// started it.
const fillTimeout = 30 * time.Second

var ErrTooLarge = errors.New("screenshot exceeds size limit")

// SceneScreenshot serves the scene's screenshot, resized to width when
// width is positive.
func (s *Service) SceneScreenshot(w http.ResponseWriter, r *http.Request, sceneID string, width int) error {
	if !idPattern.MatchString(sceneID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, sceneID)
	}
	upstream := "/scene/" + url.PathEscape(sceneID) + "/screenshot"
	return s.screenshot(w, r, "scene-"+sceneID, upstream, width)
}

// MarkerScreenshot serves a marker's screenshot.
func (s *Service) MarkerScreenshot(w http.ResponseWriter, r *http.Request, sceneID, markerID string, width int) error {
	if !idPattern.MatchString(sceneID) || !idPattern.MatchString(markerID) {
		return fmt.Errorf("%w: %q/%q", ErrInvalidID, sceneID, markerID)
	}
	upstream := "/scene/" + url.PathEscape(sceneID) + "/scene_marker/" + url.PathEscape(markerID) + "/screenshot"
	return s.screenshot(w, r, "marker-"+sceneID+"-"+markerID, upstream, width)
}

func (s *Service) screenshot(w http.ResponseWriter, r *http.Request, key, upstream string, width int) error {
	if width < 0 || width > MaxWidth {
		return fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	name := key
	contentType := ""
	if width > 0 {
		name = fmt.Sprintf("%s-w%d.jpg", key, width)
		contentType = "image/jpeg"
	}
	path := filepath.Join(s.cacheDir, "screenshots", name)

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat cached screenshot: %w", err)
		}
		_, err, _ := s.fetches.Do(path, func() (any, error) {
			// Followers share this fill, so it must not end with the
			// leader's request.
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), fillTimeout)
			defer cancel()
			return nil, s.fill(ctx, upstream, path, width)
		})
		if err != nil {
			return err
		}
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	return ServeFile(w, r, path, contentType)
}

// fill downloads the upstream screenshot into the cache at path.
func (s *Service) fill(ctx context.Context, upstream, path string, width int) error {
	resp, err := s.get(ctx, upstream, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("screenshot %s: %w", upstream, stash.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &stash.RequestError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return fmt.Errorf("read screenshot: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return fmt.Errorf("screenshot %s: %w (limit %d bytes)", upstream, ErrTooLarge, s.maxBytes)
	}
	if width > 0 {
		if data, err = resizeJPEG(data, width); err != nil {
			return err
		}
	}

	if err := writeAtomic(path, data); err != nil {
		return err
	}
	s.logger.Debug("screenshot cached", "path", path, "bytes", len(data))
	return nil
}

// resizeJPEG scales the image to width, keeping its aspect ratio. Images
// narrower than width are re-encoded at their own size.
func resizeJPEG(data []byte, width int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	if img.Bounds().Dx() > width {
		img = resize.Resize(uint(width), 0, img, resize.Lanczos3)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}
