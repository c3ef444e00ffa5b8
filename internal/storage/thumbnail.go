package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

const thumbSize = 300

// Thumbnail scales an encoded image to fit within 300x300 and re-encodes it
// as JPEG. Images already small enough are only re-encoded.
func Thumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("storage: decode image: %w", err)
	}
	thumb := resize.Thumbnail(thumbSize, thumbSize, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("storage: encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// PutThumbnail derives and stores the thumbnail for id.
func (o *Objects) PutThumbnail(ctx context.Context, id string, original []byte) error {
	thumb, err := Thumbnail(original)
	if err != nil {
		return err
	}
	return o.write(ctx, ThumbKey(id), thumb)
}

func (o *Objects) GetThumbnail(ctx context.Context, id string) ([]byte, error) {
	return o.read(ctx, ThumbKey(id))
}
