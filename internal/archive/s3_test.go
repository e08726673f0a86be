package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(b))
	return &s3.PutObjectOutput{}, nil
}

func TestKey(t *testing.T) {
	m := NewS3Mirror(&fakeS3{}, "bucket", "/icpac-cdi/")

	key, err := m.Key("https://example.org/cdi/dekadal/2024/eadw-cdi-data-2024-01-21.tif")
	require.NoError(t, err)
	assert.Equal(t, "icpac-cdi/cdi/dekadal/2024/eadw-cdi-data-2024-01-21.tif", key)

	_, err = NewS3Mirror(&fakeS3{}, "bucket", "").Key("https://example.org")
	assert.Error(t, err)
}

func TestMirrorUploadsTIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eadw-cdi-data-2024-01-21.tif")
	// Little-endian TIFF magic.
	require.NoError(t, os.WriteFile(path, []byte("II*\x00\x08\x00\x00\x00rest"), 0o644))

	client := &fakeS3{}
	m := NewS3Mirror(client, "archive", "cdi")
	require.NoError(t, m.Mirror(context.Background(), path, "https://example.org/dekadal/2024/eadw-cdi-data-2024-01-21.tif"))

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "archive", aws.ToString(in.Bucket))
	assert.Equal(t, "cdi/dekadal/2024/eadw-cdi-data-2024-01-21.tif", aws.ToString(in.Key))
	assert.Equal(t, "image/tiff", aws.ToString(in.ContentType))
	assert.Equal(t, int64(12), aws.ToInt64(in.ContentLength))
	assert.Equal(t, "II*\x00\x08\x00\x00\x00rest", client.bodies[0])
}

func TestMirrorPropagatesPutErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.tif")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	boom := errors.New("access denied")
	err := NewS3Mirror(&fakeS3{err: boom}, "archive", "").Mirror(context.Background(), path, "https://example.org/a.tif")
	assert.ErrorIs(t, err, boom)
}

func TestMirrorMissingFile(t *testing.T) {
	err := NewS3Mirror(&fakeS3{}, "archive", "").Mirror(context.Background(), filepath.Join(t.TempDir(), "nope.tif"), "https://example.org/nope.tif")
	assert.Error(t, err)
}
