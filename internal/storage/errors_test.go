package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestIsNoSuchKey(t *testing.T) {
	assert.False(t, IsNoSuchKey(nil))
	assert.True(t, IsNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, IsNoSuchKey(fmt.Errorf("wrapped: %w", minio.ErrorResponse{Code: "NotFound"})))
	assert.True(t, IsNoSuchKey(errors.New("The specified key does not exist.")))
	assert.False(t, IsNoSuchKey(minio.ErrorResponse{Code: "AccessDenied"}))
}

func TestParseBucketLookup(t *testing.T) {
	v, err := parseBucketLookup("")
	assert.NoError(t, err)
	assert.Equal(t, minio.BucketLookupAuto, v)

	v, err = parseBucketLookup("Path")
	assert.NoError(t, err)
	assert.Equal(t, minio.BucketLookupPath, v)

	_, err = parseBucketLookup("virtual")
	assert.Error(t, err)
}
