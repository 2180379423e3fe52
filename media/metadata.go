package media

import (
	"io"
	"log"

	"github.com/rwcarlsen/goexif/exif"
)

// ReadCaptureMetadata pulls the capture time out of EXIF when the upload has it.
// Gallery images without EXIF (PNG, screenshots) simply yield an empty result.
func ReadCaptureMetadata(r io.Reader) CaptureMetadata {
	var meta CaptureMetadata

	x, err := exif.Decode(r)
	if err != nil {
		return meta
	}

	tm, err := x.DateTime()
	if err != nil {
		log.Printf("media.metadata: EXIF present but no usable DateTime: %v", err)
		return meta
	}
	ms := tm.UnixMilli()
	meta.TakenAt = &ms
	return meta
}
