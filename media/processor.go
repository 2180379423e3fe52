package media

import (
	"fmt"
	"image"
	"io"
	"log"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	DefaultCaptureJpegQuality = 90
	CaptureFileExtension      = ".jpg"
)

// Processor encodes normalized captures and persists them. it relies on a
// Store implementation for saving the results.
type Processor struct {
	store       Store
	jpegQuality int
}

func NewProcessor(store Store, jpegQuality int) *Processor {
	if jpegQuality < 1 || jpegQuality > 100 {
		jpegQuality = DefaultCaptureJpegQuality
	}
	return &Processor{store: store, jpegQuality: jpegQuality}
}

// CaptureFilename derives a unique name from the capture instant.
// the uuid fragment keeps two captures in the same millisecond apart.
func CaptureFilename(now time.Time) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID for capture: %w", err)
	}
	return fmt.Sprintf("img_%d_%s%s", now.UnixMilli(), id.String()[:8], CaptureFileExtension), nil
}

// SaveCapture JPEG-encodes img and stores it as a capture asset.
// returns the relative path to the saved file.
func (p *Processor) SaveCapture(img image.Image, now time.Time) (string, error) {
	targetFilename, err := CaptureFilename(now)
	if err != nil {
		return "", err
	}

	reader, writer := io.Pipe()
	go func() {
		err := imaging.Encode(writer, img, imaging.JPEG, imaging.JPEGQuality(p.jpegQuality))
		if err != nil {
			log.Printf("processor: Failed to encode capture: %v", err)
			writer.CloseWithError(fmt.Errorf("capture encoding failed: %w", err))
			return
		}
		writer.Close()
	}()

	savedRelPath, err := p.store.Save(AssetTypeCapture, targetFilename, reader)
	if err != nil {
		reader.CloseWithError(err)
		return "", fmt.Errorf("failed to save capture via store: %w", err)
	}

	log.Printf("processor: Saved capture to %s", savedRelPath)
	return savedRelPath, nil
}
