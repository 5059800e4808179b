// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehtisham-afzal/21st/internal/core/component"
	"github.com/ehtisham-afzal/21st/internal/core/publish"
	"github.com/ehtisham-afzal/21st/internal/platform/apperr"
	"github.com/ehtisham-afzal/21st/internal/platform/ctxutil"
	"github.com/ehtisham-afzal/21st/internal/platform/metrics"
	"github.com/ehtisham-afzal/21st/internal/platform/sec"
	"github.com/ehtisham-afzal/21st/internal/platform/storage"
)

const (
	cardCode = "export function Card() { return null }"
	demoCode = "import { Card } from \"@/components/ui/card\"\nexport default function Default() { return <Card /> }"
	pngData  = "data:image/png;base64,iVBORw0KGgo="
)

// # Fakes

// journal records store writes and uploads in the order they happen.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(event string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.events)
}

func (j *journal) index(event string) int {
	return slices.Index(j.list(), event)
}

type fakeStore struct {
	*journal
	owners map[string]*component.Owner
	slugs  map[string]string
	tags   map[string][]component.Tag
}

func (fake *fakeStore) FindOwner(_ context.Context, username string) (*component.Owner, error) {
	owner, ok := fake.owners[username]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return owner, nil
}

func (fake *fakeStore) CreateComponent(_ context.Context, created *component.Component) error {
	fake.add("create_component:" + created.ComponentSlug)
	return nil
}

func (fake *fakeStore) CreateDemo(_ context.Context, demo *component.Demo) error {
	fake.slugs[demo.ID] = demo.DemoSlug
	fake.add("create_demo:" + demo.DemoSlug)
	return nil
}

func (fake *fakeStore) UpdateDemoAssets(_ context.Context, demoID string, assets component.DemoAssets) error {
	fake.add("update_demo:" + fake.slugs[demoID])
	return nil
}

func (fake *fakeStore) AttachTags(_ context.Context, demoID string, tags []component.Tag) error {
	fake.tags[fake.slugs[demoID]] = tags
	fake.add("tags:" + fake.slugs[demoID])
	return nil
}

type fakeUploader struct {
	*journal
	failKey string
}

func (fake *fakeUploader) Upload(_ context.Context, key string, file storage.File) (string, error) {
	if key == fake.failKey {
		return "", errors.New("storage: upload failed")
	}
	if _, err := file.Bytes(); err != nil {
		return "", err
	}
	fake.add("upload:" + key)
	return "https://cdn.example/" + key, nil
}

func newFixture() (*publish.Service, *fakeStore, *fakeUploader) {
	events := &journal{}
	store := &fakeStore{
		journal: events,
		owners: map[string]*component.Owner{
			"alice": {ID: "u-1", Username: "alice"},
			"bob":   {ID: "u-2", Username: "bob"},
		},
		slugs: map[string]string{},
		tags:  map[string][]component.Tag{},
	}
	uploader := &fakeUploader{journal: events}
	service := publish.NewService(store, uploader, metrics.NewNop(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return service, store, uploader
}

func member(username string) *sec.AuthClaims {
	return &sec.AuthClaims{UserID: "u-" + username, Username: username, Role: string(sec.RoleMember)}
}

func validInput() publish.Input {
	return publish.Input{
		Name:          "Card",
		ComponentSlug: "card",
		License:       "mit",
		Code:          cardCode,
		GlobalCSS:     ":root { --radius: 0.5rem }",
		Demos: []publish.DemoInput{
			{
				Name:         "Default",
				DemoCode:     demoCode,
				PreviewImage: &publish.Media{Data: pngData},
				Tags:         []publish.TagInput{{Name: "Card"}, {Name: "Layout", Slug: "layout"}},
			},
			{
				Name:         "With Image",
				DemoCode:     demoCode,
				PreviewImage: &publish.Media{ContentType: "image/png", Data: pngData},
			},
		},
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	appErr := apperr.As(err)
	require.NotNil(t, appErr, "expected an application error, got %v", err)
	return appErr.HTTPStatus
}

// # Validation

/*
TestValidate covers the checks that run before any upload.
*/
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*publish.Input)
		status  int
		message string
	}{
		{name: "valid", mutate: func(*publish.Input) {}},
		{
			name:    "no demos",
			mutate:  func(input *publish.Input) { input.Demos = nil },
			status:  http.StatusBadRequest,
			message: "At least one demo is required",
		},
		{
			name:   "demo without code",
			mutate: func(input *publish.Input) { input.Demos[1].DemoCode = "" },
			status: http.StatusBadRequest,
		},
		{
			name:   "missing component code",
			mutate: func(input *publish.Input) { input.Code = "" },
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown license",
			mutate: func(input *publish.Input) { input.License = "proprietary" },
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid slug",
			mutate: func(input *publish.Input) { input.ComponentSlug = "My Card" },
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid preview image",
			mutate: func(input *publish.Input) { input.Demos[0].PreviewImage.Data = "%%%" },
			status: http.StatusBadRequest,
		},
		{
			name: "unconfirmed ambiguous import",
			mutate: func(input *publish.Input) {
				input.Demos[0].DemoCode = "import { Badge } from \"@/components/ui/badge\"\n" + demoCode
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "confirmed ambiguous import",
			mutate: func(input *publish.Input) {
				input.Demos[0].DemoCode = "import { Badge } from \"@/components/ui/badge\"\n" + demoCode
				input.Demos[0].DemoDirectRegistryDependencies = []string{"carol/badge"}
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			input := validInput()
			test.mutate(&input)

			err := publish.Validate(input)
			if test.status == 0 {
				require.NoError(t, err)
				return
			}
			assert.Equal(t, test.status, statusOf(t, err))
			if test.message != "" {
				appErr := apperr.As(err)
				messages := []string{}
				for _, detail := range appErr.Details {
					messages = append(messages, detail.Message)
				}
				assert.Contains(t, messages, test.message)
			}
		})
	}
}

// # Publish

/*
TestService_Publish verifies demos are written one after another.
*/
func TestService_Publish(t *testing.T) {
	service, store, _ := newFixture()

	result, err := service.Publish(context.Background(), member("alice"), validInput())
	require.NoError(t, err)

	require.Len(t, result.Demos, 2)
	assert.Equal(t, "default", result.Demos[0].DemoSlug)
	assert.Equal(t, "with-image", result.Demos[1].DemoSlug)
	assert.Equal(t, "https://cdn.example/u-1/card/code.tsx", result.Component.CodeURL)
	require.NotNil(t, result.Component.GlobalCSSURL)
	assert.Equal(t, "https://cdn.example/u-1/card/globals.css", *result.Component.GlobalCSSURL)
	assert.Nil(t, result.Component.TailwindConfigURL)
	assert.Equal(t, []string{"Card"}, result.Component.ComponentNames)
	assert.True(t, result.Component.IsPublic)

	assert.Equal(t, "https://cdn.example/u-1/card/with-image/code.demo.tsx", result.Demos[1].DemoCodeURL)
	require.NotNil(t, result.Demos[1].PreviewURL)
	assert.Equal(t, "https://cdn.example/u-1/card/with-image/preview.png", *result.Demos[1].PreviewURL)
	assert.Nil(t, result.Demos[1].VideoURL)

	assert.Equal(t, []component.Tag{{Name: "Card", Slug: "card"}, {Name: "Layout", Slug: "layout"}}, store.tags["default"])

	// The component row exists only after its files are uploaded.
	assert.Less(t, store.index("upload:u-1/card/code.tsx"), store.index("create_component:card"))
	assert.Less(t, store.index("upload:u-1/card/globals.css"), store.index("create_component:card"))

	// The second demo starts after the first has its assets and tags.
	assert.Less(t, store.index("create_demo:default"), store.index("upload:u-1/card/default/code.demo.tsx"))
	assert.Less(t, store.index("upload:u-1/card/default/preview.png"), store.index("update_demo:default"))
	assert.Less(t, store.index("update_demo:default"), store.index("tags:default"))
	assert.Less(t, store.index("tags:default"), store.index("create_demo:with-image"))
	assert.Less(t, store.index("create_demo:with-image"), store.index("upload:u-1/card/with-image/code.demo.tsx"))
	assert.Less(t, store.index("upload:u-1/card/with-image/code.demo.tsx"), store.index("update_demo:with-image"))
}

/*
TestService_PublishValidationWritesNothing verifies rejected submissions never reach storage.
*/
func TestService_PublishValidationWritesNothing(t *testing.T) {
	service, store, _ := newFixture()

	input := validInput()
	input.Demos[1].DemoCode = ""

	_, err := service.Publish(context.Background(), member("alice"), input)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Empty(t, store.list())
}

/*
TestService_PublishPartialFailure reports the step and the rows left behind.
*/
func TestService_PublishPartialFailure(t *testing.T) {
	service, store, uploader := newFixture()
	uploader.failKey = "u-1/card/with-image/code.demo.tsx"

	_, err := service.Publish(context.Background(), member("alice"), validInput())

	var failure *publish.Error
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, publish.StepUploadDemo, failure.Step)
	assert.Equal(t, 1, failure.DemoIndex)
	assert.NotEmpty(t, failure.ComponentID)
	assert.Len(t, failure.DemoIDs, 2)

	assert.Contains(t, store.list(), "update_demo:default")
	assert.NotContains(t, store.list(), "update_demo:with-image")
}

/*
TestService_PublishAs checks that only admins may publish for someone else.
*/
func TestService_PublishAs(t *testing.T) {
	input := validInput()
	input.PublishAsUsername = "bob"

	service, _, _ := newFixture()
	_, err := service.Publish(context.Background(), member("alice"), input)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	admin := member("alice")
	admin.Role = string(sec.RoleAdmin)
	result, err := service.Publish(context.Background(), admin, input)
	require.NoError(t, err)
	assert.Equal(t, "u-2", result.Component.UserID)
	assert.Equal(t, "https://cdn.example/u-2/card/code.tsx", result.Component.CodeURL)

	input.PublishAsUsername = "nobody"
	_, err = service.Publish(context.Background(), admin, input)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

// # HTTP

func newRouter(service *publish.Service) http.Handler {
	router := chi.NewRouter()
	publish.NewHandler(service).RegisterRoutes(router)
	return router
}

func publishRequest(t *testing.T, claims *sec.AuthClaims, input publish.Input) *http.Request {
	t.Helper()
	body, err := json.Marshal(input)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, "/publish", strings.NewReader(string(body)))
	if claims != nil {
		request = request.WithContext(ctxutil.WithAuthUser(request.Context(), claims))
	}
	return request
}

/*
TestHandler_Publish covers authentication, success and a partial failure.
*/
func TestHandler_Publish(t *testing.T) {
	service, _, uploader := newFixture()
	router := newRouter(service)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, publishRequest(t, nil, validInput()))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, publishRequest(t, member("alice"), validInput()))
	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"demo_slug":"with-image"`)

	uploader.failKey = "u-1/card/default/preview.png"
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, publishRequest(t, member("alice"), validInput()))
	require.Equal(t, http.StatusBadGateway, recorder.Code)

	var envelope publish.FailureEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, publish.StepUploadDemo, envelope.Step)
	require.NotNil(t, envelope.DemoIndex)
	assert.Equal(t, 0, *envelope.DemoIndex)
	assert.NotEmpty(t, envelope.ComponentID)
	assert.Len(t, envelope.DemoIDs, 1)
}
