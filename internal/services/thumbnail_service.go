package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ThumbnailSize represents a thumbnail size configuration
type ThumbnailSize struct {
	Name    string
	MaxDim  int // Maximum dimension (width or height)
	Quality int // JPEG quality (1-100)
}

var (
	// ThumbFeed is the canvas/feed rendition
	ThumbFeed = ThumbnailSize{Name: "feed", MaxDim: 600, Quality: 85}
	// ThumbRecap is the small recap-grid rendition
	ThumbRecap = ThumbnailSize{Name: "recap", MaxDim: 240, Quality: 80}
)

// ThumbnailResult contains paths to generated thumbnails
type ThumbnailResult struct {
	FeedPath  string
	RecapPath string
	Width     int
	Height    int
}

// ThumbnailService generates the downscaled renditions served to
// clients instead of the originals.
type ThumbnailService struct {
	basePath string
}

// NewThumbnailService creates a new ThumbnailService
func NewThumbnailService(basePath string) *ThumbnailService {
	return &ThumbnailService{basePath: basePath}
}

// GenerateThumbnails creates the feed and recap renditions for a
// posted photo and returns their relative paths.
func (s *ThumbnailService) GenerateThumbnails(imageData []byte, photoID, storedPath string, orientation int) (*ThumbnailResult, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Apply EXIF orientation correction
	img = applyOrientation(img, orientation)

	bounds := img.Bounds()
	result := &ThumbnailResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	// Thumbnails live next to the original in a .thumbs folder
	thumbDir := filepath.Join(filepath.Dir(storedPath), ".thumbs")
	if err := os.MkdirAll(filepath.Join(s.basePath, thumbDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	sizes := []struct {
		size    ThumbnailSize
		pathPtr *string
	}{
		{ThumbFeed, &result.FeedPath},
		{ThumbRecap, &result.RecapPath},
	}

	for _, item := range sizes {
		thumbPath, err := s.generateThumbnail(img, photoID, thumbDir, item.size)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s thumbnail: %w", item.size.Name, err)
		}
		*item.pathPtr = thumbPath
	}

	return result, nil
}

// generateThumbnail creates a single thumbnail and returns its relative path
func (s *ThumbnailService) generateThumbnail(img image.Image, photoID, thumbDir string, size ThumbnailSize) (string, error) {
	resized := imaging.Fit(img, size.MaxDim, size.MaxDim, imaging.Lanczos)

	filename := fmt.Sprintf("%s_%s.jpg", photoID, size.Name)
	relativePath := filepath.Join(thumbDir, filename)
	fullPath := filepath.Join(s.basePath, relativePath)

	out, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	defer out.Close()

	opts := &jpeg.Options{Quality: size.Quality}
	if err := jpeg.Encode(out, resized, opts); err != nil {
		os.Remove(fullPath) // Clean up on failure
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return relativePath, nil
}

// applyOrientation corrects image orientation based on EXIF data
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Rotate270(imaging.FlipH(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Rotate90(imaging.FlipH(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// GetThumbnailPath returns the full filesystem path for a thumbnail
func (s *ThumbnailService) GetThumbnailPath(relativePath string) string {
	return filepath.Join(s.basePath, relativePath)
}

// DeleteThumbnails removes the renditions for a photo
func (s *ThumbnailService) DeleteThumbnails(paths ...string) {
	for _, p := range paths {
		if p != "" {
			os.Remove(filepath.Join(s.basePath, p)) // Ignore errors for non-existent files
		}
	}
}
