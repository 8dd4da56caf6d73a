package upload

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	full := Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "fixtures"}
	require.NoError(t, full.Validate())
	assert.True(t, full.Enabled())

	err := Config{Endpoint: "localhost:9000"}.Validate()
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Contains(t, err.Error(), "bucket, access_key, secret_key")

	assert.False(t, Config{}.Enabled())
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestConfig_ObjectKey(t *testing.T) {
	assert.Equal(t, "big.ndjson.gz", Config{}.ObjectKey("/tmp/out/big.ndjson.gz"))
	assert.Equal(t, "runs/today.ndjson", Config{Object: "runs/today.ndjson"}.ObjectKey("/tmp/big.ndjson"))
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"big.ndjson":     "application/x-ndjson",
		"big.ndjson.gz":  "application/gzip",
		"big.ndjson.zst": "application/zstd",
		"big.ndjson.xz":  "application/x-xz",
		"big.yaml":       "application/yaml",
	}
	for path, want := range tests {
		assert.Equal(t, want, ContentType(path), path)
	}
}

func TestResult_URL(t *testing.T) {
	assert.Equal(t, "s3://fixtures/big.ndjson", Result{Bucket: "fixtures", Key: "big.ndjson"}.URL())
}
