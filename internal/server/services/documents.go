package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	sc "github.com/deepdive-club/deepdive-api/internal/server/config"
	"github.com/deepdive-club/deepdive-api/internal/server/models"
	"github.com/deepdive-club/deepdive-api/internal/server/repositories/repomanager"
)

// presignExpiry bounds how long an upload/download URL stays usable.
const presignExpiry = 15 * time.Minute

// seams for testing the presign path without a live S3 endpoint
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// DocumentUpload is what a client needs to push a register document into
// object storage after the metadata row has been recorded.
type DocumentUpload struct {
	Document  *models.RegisterDocument
	UploadURL string
}

// DocumentService keeps register-document bookkeeping rows and hands out
// presigned S3 URLs for the binaries themselves.
type DocumentService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	config *sc.Config
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config) *DocumentService {
	return &DocumentService{db: db, repos: m, config: cfg}
}

func randomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("documents/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *DocumentService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// RegisterUpload records the metadata row and returns a presigned PUT URL
// the client uploads the document to.
func (s *DocumentService) RegisterUpload(ctx context.Context, userID string, documentName string, docType models.DocumentType) (*DocumentUpload, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := randomStorageKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, err
	}

	doc, err := s.repos.Documents(s.db).Add(ctx, &models.RegisterDocument{
		UserID:       userID,
		DocumentName: documentName,
		StorageKey:   key,
		DocumentType: docType,
	})
	if err != nil {
		return nil, err
	}

	return &DocumentUpload{Document: doc, UploadURL: req.URL}, nil
}

// GetDownloadURL returns a presigned GET URL for a document the user owns.
func (s *DocumentService) GetDownloadURL(ctx context.Context, documentID string, userID string) (string, error) {
	doc, err := s.repos.Documents(s.db).Get(ctx, documentID, userID)
	if err != nil {
		return "", err
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &doc.StorageKey,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// List returns all register documents recorded for the user.
func (s *DocumentService) List(ctx context.Context, userID string) ([]*models.RegisterDocument, error) {
	return s.repos.Documents(s.db).ListByUser(ctx, userID)
}
