package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/spf13/afero"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png: %v", err)
	}
	return buf.Bytes()
}

func TestContentIDIsStable(t *testing.T) {
	a := ContentID([]byte("same bytes"))
	b := ContentID([]byte("same bytes"))
	if a != b {
		t.Fatalf("identical content must hash identically")
	}
	if len(a) != 64 || !ValidContentID(a) {
		t.Fatalf("expected full sha256 hex, got %q", a)
	}
	if a == ContentID([]byte("other bytes")) {
		t.Fatalf("different content should differ")
	}
	if ObjectKey(a) != "images/"+a+".jpg" {
		t.Fatalf("unexpected key %q", ObjectKey(a))
	}
}

func TestDecodeBase64Image(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff, 0x00, 0x01}
	enc := base64.StdEncoding.EncodeToString(raw)

	for _, in := range []string{enc, "data:image/jpeg;base64," + enc} {
		got, err := DecodeBase64Image(in)
		if err != nil {
			t.Fatalf("decode %q: %v", in, err)
		}
		if !bytes.Equal(got, raw) {
			t.Fatalf("bytes differ for %q", in)
		}
	}
	if _, err := DecodeBase64Image("!!!"); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := DecodeBase64Image(""); err == nil {
		t.Fatalf("expected empty error")
	}
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	o := NewObjectsFs(afero.NewMemMapFs())
	data := []byte("image-bytes")
	id := ContentID(data)

	if err := o.Put(ctx, id, data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := o.Put(ctx, id, data); err != nil {
		t.Fatalf("second Put should overwrite: %v", err)
	}
	got, err := o.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("content mismatch")
	}

	if err := o.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := o.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := o.Delete(ctx, id); err != nil {
		t.Fatalf("deleting a missing object must be a no-op: %v", err)
	}
	if err := o.Delete(ctx, ContentID([]byte("never stored"))); err != nil {
		t.Fatalf("deleting a never-stored id must be a no-op: %v", err)
	}
}

func TestPutLeavesNoTempFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	o := NewObjectsFs(fsys)
	id := ContentID([]byte("x"))
	if err := o.Put(context.Background(), id, []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entries, err := afero.ReadDir(fsys, "images")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != id+".jpg" {
		t.Fatalf("unexpected entries: %v", entries)
	}
}

func TestThumbnailStoredAndDeletedWithImage(t *testing.T) {
	ctx := context.Background()
	o := NewObjectsFs(afero.NewMemMapFs())
	data := testPNG(t, 900, 600)
	id := ContentID(data)

	if err := o.Put(ctx, id, data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := o.PutThumbnail(ctx, id, data); err != nil {
		t.Fatalf("PutThumbnail: %v", err)
	}
	thumb, err := o.GetThumbnail(ctx, id)
	if err != nil {
		t.Fatalf("GetThumbnail: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumb: %v", err)
	}
	if cfg.Width > 300 || cfg.Height > 300 {
		t.Fatalf("thumbnail too large: %dx%d", cfg.Width, cfg.Height)
	}

	if err := o.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := o.GetThumbnail(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("thumbnail should go with the image, got %v", err)
	}
}

func TestThumbnailRejectsGarbage(t *testing.T) {
	if _, err := Thumbnail([]byte("not an image")); err == nil {
		t.Fatalf("expected decode error")
	}
}
