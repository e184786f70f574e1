package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDestinationLocal(t *testing.T) {
	d := ParseDestination("/tmp/world.wbt")
	assert.False(t, d.IsS3)
	assert.Equal(t, "/tmp/world.wbt", d.LocalPath)
}

func TestParseDestinationS3(t *testing.T) {
	d := ParseDestination("s3://my-bucket/worlds/arena.wbt")
	assert.True(t, d.IsS3)
	assert.Equal(t, "worlds/arena.wbt", d.Key)
}

func TestUploadLocalWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.png")

	var u *Uploader // local destinations never touch the S3 client
	err := u.Upload(context.Background(), Destination{LocalPath: path}, []byte("image-bytes"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestUploadS3WithoutUploaderErrors(t *testing.T) {
	var u *Uploader
	err := u.Upload(context.Background(), Destination{IsS3: true, Key: "x"}, nil)
	assert.Error(t, err)
}
