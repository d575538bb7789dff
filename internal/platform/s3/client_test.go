package s3

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

type fakeAPIError struct {
	code string
}

func (e *fakeAPIError) Error() string                 { return e.code }
func (e *fakeAPIError) ErrorCode() string             { return e.code }
func (e *fakeAPIError) ErrorMessage() string          { return e.code }
func (e *fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

func TestNewClient(t *testing.T) {
	client, err := NewClient("https://s3.example.com", "us-east-1", "access", "secret")
	assert.NoError(t, err)
	assert.NotNil(t, client)
}

func TestIsBucketAlreadyOwned(t *testing.T) {
	assert.True(t, isBucketAlreadyOwned(&types.BucketAlreadyOwnedByYou{}))
	assert.True(t, isBucketAlreadyOwned(&types.BucketAlreadyExists{}))
	assert.True(t, isBucketAlreadyOwned(&fakeAPIError{code: "BucketAlreadyOwnedByYou"}))
	assert.False(t, isBucketAlreadyOwned(&fakeAPIError{code: "AccessDenied"}))
	assert.False(t, isBucketAlreadyOwned(errors.New("connection refused")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(&fakeAPIError{code: "NoSuchKey"}))
	assert.True(t, isNotFound(&fakeAPIError{code: "NotFound"}))
	assert.False(t, isNotFound(&fakeAPIError{code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("connection refused")))
}
