package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	gifHeader  = []byte("GIF89a\x01\x00\x01\x00")
)

func TestValidateImage(t *testing.T) {
	cases := []struct {
		name string
		file string
		data []byte
		want error
	}{
		{"png", "a.PNG", pngHeader, nil},
		{"jpeg as jpg", "photo.jpg", jpegHeader, nil},
		{"gif", "x.gif", gifHeader, nil},
		{"empty", "a.png", nil, ErrEmptyFile},
		{"svg refused", "a.svg", []byte("<svg></svg>"), ErrBadExtension},
		{"no extension", "a", pngHeader, ErrBadExtension},
		{"png named jpg", "a.jpg", pngHeader, ErrContentMismatch},
		{"text named png", "a.png", []byte("hello world"), ErrContentMismatch},
		{"too large", "a.png", append(pngHeader, bytes.Repeat([]byte{0}, MaxImageSize)...), ErrTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ValidateImage(tc.file, tc.data)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestLocalStorageSave(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(filepath.Join(dir, "up"), "/uploads/")
	if err != nil {
		t.Fatal(err)
	}
	name := ObjectName("png")
	url, err := s.Save(context.Background(), "../../"+name, "image/png", pngHeader)
	if err != nil {
		t.Fatal(err)
	}
	if url != "/uploads/"+name {
		t.Fatalf("url = %s", url)
	}
	got, err := os.ReadFile(filepath.Join(s.Dir(), name))
	if err != nil || !bytes.Equal(got, pngHeader) {
		t.Fatalf("stored = %q, %v", got, err)
	}
}

func TestObjectNameKeepsExtension(t *testing.T) {
	a, b := ObjectName("webp"), ObjectName("webp")
	if a == b || !strings.HasSuffix(a, ".webp") {
		t.Fatalf("names %q %q", a, b)
	}
}

func TestS3URL(t *testing.T) {
	s := &S3Storage{bucket: "media", region: "eu-central-1", prefix: "events/"}
	if got := s.URL("x.png"); got != "https://media.s3.eu-central-1.amazonaws.com/events/x.png" {
		t.Fatalf("URL = %s", got)
	}
}
