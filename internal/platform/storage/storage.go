// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package storage persists component sources and demo media in an S3-compatible
bucket (Cloudflare R2 in production) and reads sources back for previews.

Objects are addressed by key; callers only ever see the public URL, which is
what the catalogue stores as a component's source reference.
*/
package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ehtisham-afzal/21st/internal/platform/apperr"
)

// maxFetchBytes bounds a single source download.
const maxFetchBytes = 4 << 20

// ErrObjectTooLarge is returned by Fetch for objects over maxFetchBytes.
var ErrObjectTooLarge = errors.New("storage: object too large")

// File is an upload payload. Exactly one of Text or Base64 is set.
type File struct {
	Name        string
	ContentType string

	// Text is uploaded verbatim.
	Text string

	// Base64 holds binary content, optionally as a data URL.
	Base64 string
}

// Bytes returns the raw object body, decoding Base64 content.
func (f File) Bytes() ([]byte, error) {
	if f.Base64 == "" {
		return []byte(f.Text), nil
	}

	encoded := f.Base64
	if strings.HasPrefix(encoded, "data:") {
		if comma := strings.Index(encoded, ","); comma >= 0 {
			encoded = encoded[comma+1:]
		}
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("storage: %s is not valid base64: %w", f.Name, err)
	}
	return decoded, nil
}

// objectAPI is the subset of the S3 client used here.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Options configures an [S3Store].
type Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	// PublicBaseURL prefixes object keys to form the URLs handed to clients.
	PublicBaseURL string
}

// S3Store uploads and downloads objects in a single bucket.
type S3Store struct {
	client        objectAPI
	bucket        string
	publicBaseURL string
	logger        *slog.Logger
}

// NewS3Store builds an R2/S3 client from static credentials.
func NewS3Store(options Options, logger *slog.Logger) *S3Store {
	s3Options := s3.Options{
		Region:       options.Region,
		UsePathStyle: true,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     options.AccessKeyID,
				SecretAccessKey: options.SecretAccessKey,
				Source:          "StaticEnvironment",
			}, nil
		}),
	}
	if options.Endpoint != "" {
		s3Options.BaseEndpoint = aws.String(options.Endpoint)
	}

	return newStore(s3.New(s3Options), options.Bucket, options.PublicBaseURL, logger)
}

func newStore(client objectAPI, bucket, publicBaseURL string, logger *slog.Logger) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        logger,
	}
}

// Upload stores file under key and returns its public URL.
func (store *S3Store) Upload(ctx context.Context, key string, file File) (string, error) {
	body, err := file.Bytes()
	if err != nil {
		return "", apperr.ValidationError("Invalid file payload", apperr.FieldError{Field: file.Name, Message: err.Error()})
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "text/plain"
	}

	_, err = store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(store.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"original-filename": file.Name,
		},
	})
	if err != nil {
		return "", fmt.Errorf("storage: upload %s failed: %w", key, err)
	}

	store.logger.Debug("object_uploaded",
		slog.String("key", key),
		slog.Int("bytes", len(body)),
	)

	return store.PublicURL(key), nil
}

// Fetch downloads a text object by its public URL.
func (store *S3Store) Fetch(ctx context.Context, url string) (string, error) {
	key, ok := store.KeyFromURL(url)
	if !ok {
		return "", fmt.Errorf("storage: %q is outside bucket %s", url, store.bucket)
	}

	output, err := store.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return "", apperr.NotFound("Source file")
		}
		return "", fmt.Errorf("storage: fetch %s failed: %w", key, err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(io.LimitReader(output.Body, maxFetchBytes+1))
	if err != nil {
		return "", fmt.Errorf("storage: read %s failed: %w", key, err)
	}
	if len(data) > maxFetchBytes {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrObjectTooLarge, key, maxFetchBytes)
	}
	return string(data), nil
}

// PublicURL maps an object key to its client-facing URL.
func (store *S3Store) PublicURL(key string) string {
	return store.publicBaseURL + "/" + strings.TrimPrefix(key, "/")
}

// KeyFromURL reverses [S3Store.PublicURL].
func (store *S3Store) KeyFromURL(url string) (string, bool) {
	prefix := store.publicBaseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
