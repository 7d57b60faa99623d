package audio

import (
	"context"
	"strings"
	"testing"

	sc "github.com/mlevitan/clinisync/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *sc.Config {
	return &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "clinisync-audio",
	}
}

func TestPresignUpload(t *testing.T) {
	svc := NewService(testConfig())

	key, url, err := svc.PresignUpload(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "audio/user-1/"))
	assert.Contains(t, url, "clinisync-audio")
	assert.Contains(t, url, "X-Amz-Signature")

	// every call issues a fresh key
	key2, _, err := svc.PresignUpload(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, key, key2)
}

func TestPresignDownload(t *testing.T) {
	svc := NewService(testConfig())

	url, err := svc.PresignDownload(context.Background(), "audio/user-1/2025/3/1/some-key")
	require.NoError(t, err)
	assert.Contains(t, url, "audio/user-1/2025/3/1/some-key")
	assert.Contains(t, url, "X-Amz-Signature")
}
