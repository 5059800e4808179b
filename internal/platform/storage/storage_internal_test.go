// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehtisham-afzal/21st/internal/platform/apperr"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(params.Key)] = data
	f.types[aws.ToString(params.Key)] = aws.ToString(params.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func newTestStore() (*S3Store, *fakeObjects) {
	objects := newFakeObjects()
	return newStore(objects, "components-code", "https://cdn.21st.dev/", slog.New(slog.NewTextHandler(io.Discard, nil))), objects
}

/*
TestS3Store_UploadAndFetch round-trips a text source through its public URL.
*/
func TestS3Store_UploadAndFetch(t *testing.T) {
	store, objects := newTestStore()
	ctx := context.Background()

	url, err := store.Upload(ctx, "u1/button/code.tsx", File{Name: "code.tsx", ContentType: "text/plain", Text: "export const Button = 1"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.21st.dev/u1/button/code.tsx", url)
	assert.Equal(t, "text/plain", objects.types["u1/button/code.tsx"])

	source, err := store.Fetch(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, "export const Button = 1", source)
}

/*
TestS3Store_UploadBase64 strips the data URL prefix before decoding.
*/
func TestS3Store_UploadBase64(t *testing.T) {
	store, objects := newTestStore()

	_, err := store.Upload(context.Background(), "u1/button/default/preview.png", File{
		Name:        "preview.png",
		ContentType: "image/png",
		Base64:      "data:image/png;base64,aGVsbG8=",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), objects.objects["u1/button/default/preview.png"])

	_, err = store.Upload(context.Background(), "bad", File{Name: "video.mp4", Base64: "!!!"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}

/*
TestS3Store_FetchErrors covers foreign URLs and missing keys.
*/
func TestS3Store_FetchErrors(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.Fetch(context.Background(), "https://elsewhere.example/code.tsx")
	assert.Error(t, err)

	_, err = store.Fetch(context.Background(), "https://cdn.21st.dev/missing.tsx")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

/*
TestS3Store_FetchSizeLimit verifies oversized objects fail instead of being truncated.
*/
func TestS3Store_FetchSizeLimit(t *testing.T) {
	store, objects := newTestStore()

	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{name: "at the limit", size: maxFetchBytes, wantErr: false},
		{name: "one byte over", size: maxFetchBytes + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects.objects["big.tsx"] = bytes.Repeat([]byte("a"), tt.size)

			source, err := store.Fetch(context.Background(), "https://cdn.21st.dev/big.tsx")

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrObjectTooLarge)
				assert.Empty(t, source)
				return
			}
			require.NoError(t, err)
			assert.Len(t, source, tt.size)
		})
	}
}
