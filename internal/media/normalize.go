// Package media turns captured fridge photos and videos into a bounded-size
// preview for storage and a payload for the gateway.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
)

// targetWidth is the width every preview is scaled to, height following the
// aspect ratio.
const targetWidth = 1200

// jpegQuality matches the 0.8 lossy quality of the original capture path.
const jpegQuality = 80

// ErrUnsupportedMedia is returned for files that are neither image nor video.
// It is the one media error raised before any network call.
var ErrUnsupportedMedia = errors.New("unsupported media type, expected an image or a video")

// Normalized is the result of processing one captured file: a thumbnail for
// the session store and a payload for the gateway.
type Normalized struct {
	// Thumbnail is a base64 JPEG data URL, or "" when no frame was available.
	Thumbnail string
	// Payload is what the gateway receives: re-encoded JPEG bytes for images,
	// the untouched file bytes for video.
	Payload []byte
	// MIMEType describes Payload.
	MIMEType string
}

// Normalize inspects the file bytes and routes them through the image or
// video rule. posterFrame is an optional still extracted by the capture layer
// for video input; it is ignored for images.
func Normalize(data, posterFrame []byte) (*Normalized, error) {
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("image/jpeg") || mt.Is("image/png") || mt.Is("image/gif"):
		return NormalizeImage(data)
	case len(mt.String()) >= 6 && mt.String()[:6] == "video/":
		return NormalizeVideo(data, mt.String(), posterFrame), nil
	default:
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedMedia, mt.String())
	}
}

// NormalizeImage decodes, scales to the target width and re-encodes as JPEG.
// The same bytes serve as both the stored thumbnail and the gateway payload.
func NormalizeImage(data []byte) (*Normalized, error) {
	encoded, err := scaleAndEncode(data)
	if err != nil {
		return nil, err
	}
	return &Normalized{
		Thumbnail: dataURL(encoded),
		Payload:   encoded,
		MIMEType:  "image/jpeg",
	}, nil
}

// NormalizeVideo keeps the raw video bytes as the gateway payload, so the
// model sees the full clip, while storage gets only a still. The still comes
// from the capture layer's poster frame; when that is missing or broken the
// thumbnail is empty and the scan proceeds anyway.
func NormalizeVideo(data []byte, mimeType string, posterFrame []byte) *Normalized {
	n := &Normalized{Payload: data, MIMEType: mimeType}
	if len(posterFrame) == 0 {
		return n
	}
	encoded, err := scaleAndEncode(posterFrame)
	if err != nil {
		return n
	}
	n.Thumbnail = dataURL(encoded)
	return n
}

func scaleAndEncode(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img = resize.Resize(targetWidth, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func dataURL(jpegData []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegData)
}
