// media/types.go
package media

import "errors"

type AssetType string

const (
	AssetTypeCapture AssetType = "capture"
)

// DefaultTargetSize is the square edge the classifier model was trained on
const DefaultTargetSize = 224

// ErrInvalidImage is returned for undecodable or zero-dimension input
var ErrInvalidImage = errors.New("invalid image")

// CaptureMetadata holds the EXIF fields kept alongside a classification
type CaptureMetadata struct {
	TakenAt *int64 `json:"taken_at,omitempty"` // unix ms
}
