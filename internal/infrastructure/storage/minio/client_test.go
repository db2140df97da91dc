package minio

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expires, reqParams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinIOAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func makeURL(s string) *url.URL {
	u, _ := url.Parse(s)
	return u
}

type ClientTestSuite struct {
	suite.Suite
	api    *MockMinIOAPI
	client *MinIOClient
	store  *DocumentStore
	ctx    context.Context
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.client = newMinIOClientWithAPI(s.api, &MinIOConfig{Endpoint: "minio:9000"}, logging.NewNopLogger())
	s.store = NewDocumentStore(s.client, logging.NewNopLogger())
	s.ctx = context.Background()
}

func (s *ClientTestSuite) TestApplyDefaults() {
	cfg := &MinIOConfig{}
	applyDefaults(cfg)

	s.Equal("us-east-1", cfg.Region)
	s.Equal("contract-documents", cfg.Bucket)
	s.Equal(15*time.Minute, cfg.PresignExpiry)
	s.False((&MinIOConfig{}).Enabled())
	s.True((&MinIOConfig{Endpoint: "x"}).Enabled())
}

func (s *ClientTestSuite) TestEnsureBucket_Creates() {
	s.api.On("BucketExists", s.ctx, "contract-documents").Return(false, nil)
	s.api.On("MakeBucket", s.ctx, "contract-documents", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

	s.NoError(s.client.EnsureBucket(s.ctx))
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestEnsureBucket_Exists() {
	s.api.On("BucketExists", s.ctx, "contract-documents").Return(true, nil)

	s.NoError(s.client.EnsureBucket(s.ctx))
	s.api.AssertNotCalled(s.T(), "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ClientTestSuite) TestHealthCheck() {
	s.api.On("BucketExists", s.ctx, "contract-documents").Return(true, nil).Once()
	status, err := s.client.HealthCheck(s.ctx)
	s.NoError(err)
	s.True(status.Healthy)

	s.api.On("BucketExists", s.ctx, "contract-documents").Return(false, nil).Once()
	status, err = s.client.HealthCheck(s.ctx)
	s.True(errors.IsNotFound(err))
	s.False(status.Healthy)
}

func (s *ClientTestSuite) TestPresignedURL_Success() {
	s.api.On("StatObject", s.ctx, "contract-documents", "acme/msa.pdf", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{Key: "acme/msa.pdf"}, nil)
	s.api.On("PresignedGetObject", s.ctx, "contract-documents", "acme/msa.pdf", 5*time.Minute, url.Values(nil)).
		Return(makeURL("https://minio/contract-documents/acme/msa.pdf?X-Amz-Signature=abc"), nil)

	link, err := s.store.PresignedURL(s.ctx, "/acme/msa.pdf", 5*time.Minute)
	s.Require().NoError(err)
	s.Contains(link, "X-Amz-Signature")
}

func (s *ClientTestSuite) TestPresignedURL_DefaultExpiry() {
	s.api.On("StatObject", s.ctx, "contract-documents", "a.pdf", minio.StatObjectOptions{}).Return(minio.ObjectInfo{}, nil)
	s.api.On("PresignedGetObject", s.ctx, "contract-documents", "a.pdf", 15*time.Minute, url.Values(nil)).
		Return(makeURL("https://minio/a.pdf"), nil)

	_, err := s.store.PresignedURL(s.ctx, "a.pdf", 0)
	s.NoError(err)
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestPresignedURL_MissingObject() {
	s.api.On("StatObject", s.ctx, "contract-documents", "gone.pdf", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404})

	_, err := s.store.PresignedURL(s.ctx, "gone.pdf", time.Minute)
	s.True(errors.IsCode(err, errors.ErrCodeDocumentUnavailable))
	s.api.AssertNotCalled(s.T(), "PresignedGetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ClientTestSuite) TestPresignedURL_EmptyKey() {
	_, err := s.store.PresignedURL(s.ctx, "  ", time.Minute)
	s.True(errors.IsValidation(err))
}

func (s *ClientTestSuite) TestUpload() {
	body := strings.NewReader("%PDF-1.7")
	s.api.On("PutObject", s.ctx, "contract-documents", "acme/msa.pdf", body, int64(8),
		minio.PutObjectOptions{ContentType: "application/pdf"}).
		Return(minio.UploadInfo{ETag: "etag-1", Size: 8}, nil)

	res, err := s.store.Upload(s.ctx, "acme/msa.pdf", body, 8, "application/pdf")
	s.Require().NoError(err)
	s.Equal("etag-1", res.ETag)
	s.Equal("acme/msa.pdf", res.ObjectKey)
}

func (s *ClientTestSuite) TestClosed() {
	s.Require().NoError(s.client.Close())

	_, err := s.store.PresignedURL(s.ctx, "a.pdf", time.Minute)
	s.Equal(ErrMinIOClientClosed, err)
	_, err = s.client.HealthCheck(s.ctx)
	s.Equal(ErrMinIOClientClosed, err)
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	require.False(t, isNotFound(io.ErrUnexpectedEOF))
}

//Personal.AI order the ending
