package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/mock"
)

type MockS3Client struct {
	mock.Mock
}

var _ Client = (*MockS3Client)(nil)

func output[T any](args mock.Arguments) (*T, error) {
	out, _ := args.Get(0).(*T)
	return out, args.Error(1)
}

func (m *MockS3Client) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return output[s3.HeadObjectOutput](m.Called(ctx, in))
}

func (m *MockS3Client) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return output[s3.GetObjectOutput](m.Called(ctx, in))
}

func (m *MockS3Client) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return output[s3.PutObjectOutput](m.Called(ctx, in))
}

func (m *MockS3Client) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return output[s3.DeleteObjectOutput](m.Called(ctx, in))
}

func (m *MockS3Client) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return output[s3.ListObjectsV2Output](m.Called(ctx, in))
}

func (m *MockS3Client) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return output[s3.UploadPartOutput](m.Called(ctx, in))
}

func (m *MockS3Client) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return output[s3.CreateMultipartUploadOutput](m.Called(ctx, in))
}

func (m *MockS3Client) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return output[s3.CompleteMultipartUploadOutput](m.Called(ctx, in))
}

func (m *MockS3Client) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return output[s3.AbortMultipartUploadOutput](m.Called(ctx, in))
}
