package filestore

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	s, err := New(filepath.Join(t.TempDir(), "screenshots"))
	require.NoError(t, err)
	return s
}

func TestSaveAvoidsCollisions(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Save([]byte("one"), "a.jpg", "")
	require.NoError(t, err)
	require.Equal(t, "a.jpg", first)

	second, err := s.Save([]byte("two"), "a.jpg", "")
	require.NoError(t, err)
	require.Equal(t, "a-1.jpg", second)

	third, err := s.Save([]byte("three"), "a.jpg", "")
	require.NoError(t, err)
	require.Equal(t, "a-2.jpg", third)

	// All three files coexist with their own contents.
	for name, want := range map[string]string{"a.jpg": "one", "a-1.jpg": "two", "a-2.jpg": "three"} {
		data, err := s.Read(name)
		require.NoError(t, err)
		require.Equal(t, want, string(data))
	}
}

func TestSaveNormalizesNames(t *testing.T) {
	s := newTestStore(t)

	name, err := s.Save([]byte("x"), "../../etc/passwd", ".jpg")
	require.NoError(t, err)
	require.Equal(t, "passwd.jpg", name)
	_, err = os.Stat(filepath.Join(s.Root(), name))
	require.NoError(t, err)

	name, err = s.Save([]byte("x"), "", ".jpg")
	require.NoError(t, err)
	require.Equal(t, "screenshot.jpg", name)

	name, err = s.Save([]byte("x"), "IMG_0001.PNG", ".jpg")
	require.NoError(t, err)
	require.Equal(t, "IMG_0001.jpg", name)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	name, err := s.Save([]byte("data"), "shot.jpg", "")
	require.NoError(t, err)

	require.NoError(t, s.Delete(name))
	require.NoError(t, s.Delete(name))
	require.NoError(t, s.Delete("never-existed.jpg"))
}

func TestNormalizeJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))

	out, err := NormalizeJPEG(buf.Bytes())
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 8, img.Bounds().Dx())

	_, err = NormalizeJPEG([]byte("not an image"))
	require.Error(t, err)
}

func TestDownsampleFitsWithinMaxEdge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 200, 100)), nil))

	out, err := Downsample(buf.Bytes(), 50)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.LessOrEqual(t, img.Bounds().Dx(), 50)
	require.LessOrEqual(t, img.Bounds().Dy(), 50)
}
