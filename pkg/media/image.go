// Package media prepares locally stored media files for publishing.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// PrepareImage downscales an image wider than maxWidth and re-encodes it
// as JPEG next to the original. It returns the path to publish: the
// processed copy when resizing happened, otherwise the original path.
// Callers own cleanup of the returned file when it differs from src.
func PrepareImage(src string, maxWidth int) (string, error) {
	if maxWidth <= 0 {
		return src, nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("media file not accessible: %w", err)
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to open image %s: %w", src, err)
	}

	if img.Bounds().Dx() <= maxWidth {
		return src, nil
	}

	resized := imaging.Resize(img, maxWidth, 0, imaging.Lanczos)

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	out := filepath.Join(filepath.Dir(src), fmt.Sprintf("publish-%s.jpg", base))
	if err := imaging.Save(resized, out, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("failed to save processed image: %w", err)
	}

	if processed, err := os.Stat(out); err == nil {
		logrus.Debugf("[MEDIA] Downscaled %s from %s to %s",
			filepath.Base(src), humanize.Bytes(uint64(info.Size())), humanize.Bytes(uint64(processed.Size())))
	}

	return out, nil
}
