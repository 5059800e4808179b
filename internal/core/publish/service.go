// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ehtisham-afzal/21st/internal/core/component"
	"github.com/ehtisham-afzal/21st/internal/platform/apperr"
	"github.com/ehtisham-afzal/21st/internal/platform/metrics"
	"github.com/ehtisham-afzal/21st/internal/platform/sec"
	"github.com/ehtisham-afzal/21st/internal/platform/storage"
	"github.com/ehtisham-afzal/21st/pkg/pointer"
	"github.com/ehtisham-afzal/21st/pkg/uuid"
)

const tracerName = "github.com/ehtisham-afzal/21st/internal/core/publish"

// Store is the slice of the catalogue that publishing writes to.
type Store interface {
	FindOwner(context context.Context, username string) (*component.Owner, error)
	CreateComponent(context context.Context, component *component.Component) error
	CreateDemo(context context.Context, demo *component.Demo) error
	UpdateDemoAssets(context context.Context, demoID string, assets component.DemoAssets) error
	AttachTags(context context.Context, demoID string, tags []component.Tag) error
}

// Uploader writes objects and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, file storage.File) (string, error)
}

// # Publish Service

// Service runs the publish sequence.
type Service struct {
	store    Store
	uploader Uploader
	metrics  *metrics.Registry
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewService constructs a new publish [Service].
func NewService(store Store, uploader Uploader, registry *metrics.Registry, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		uploader: uploader,
		metrics:  registry,
		tracer:   otel.Tracer(tracerName),
		logger:   logger,
	}
}

/*
Publish validates a submission and writes it.

Description: Validation covers the whole submission, demos included, before
the first upload. Component files upload concurrently, then the component row
is inserted. Each demo is inserted, its files uploaded concurrently, its row
updated with the URLs and its tags attached before the next demo starts.

Parameters:
  - ctx: context.Context
  - publisher: *sec.AuthClaims (the authenticated caller)
  - input: Input

Returns:
  - *Result: The component and demos as written
  - error: Validation errors before any write, *Error after the first write
*/
func (service *Service) Publish(ctx context.Context, publisher *sec.AuthClaims, input Input) (*Result, error) {
	ctx, span := service.tracer.Start(ctx, "publish.Publish",
		trace.WithAttributes(attribute.String("component.slug", input.ComponentSlug), attribute.Int("demos", len(input.Demos))),
	)
	defer span.End()

	result, err := service.publish(ctx, publisher, input)
	if err != nil {
		step := StepValidate
		var failure *Error
		if errors.As(err, &failure) {
			step = failure.Step
		}
		service.metrics.Publishes.WithLabelValues(metrics.ResultError, string(step)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(step))
		service.logger.Warn("component_publish_failed",
			slog.String("component_slug", input.ComponentSlug),
			slog.String("step", string(step)),
			slog.Any("error", err),
		)
		return nil, err
	}

	service.metrics.Publishes.WithLabelValues(metrics.ResultOK, "").Inc()
	service.logger.Info("component_published",
		slog.String("component_id", result.Component.ID),
		slog.String("component_slug", result.Component.ComponentSlug),
		slog.Int("demos", len(result.Demos)),
	)
	return result, nil
}

func (service *Service) publish(ctx context.Context, publisher *sec.AuthClaims, input Input) (*Result, error) {
	owner, err := service.owner(ctx, publisher, input.PublishAsUsername)
	if err != nil {
		return nil, err
	}

	plan, err := prepare(input, owner.Username)
	if err != nil {
		return nil, err
	}
	input = plan.input

	// ## Component
	folder := path.Join(owner.ID, input.ComponentSlug)
	published := &component.Component{
		ID:                         uuid.New(),
		UserID:                     owner.ID,
		Name:                       input.Name,
		Registry:                   input.Registry,
		ComponentSlug:              input.ComponentSlug,
		ComponentNames:             plan.parsed[0].ComponentNames,
		Description:                input.Description,
		License:                    input.License,
		WebsiteURL:                 input.WebsiteURL,
		Dependencies:               plan.parsed[0].NPMDependencies,
		DemoDependencies:           plan.parsed[0].DemoNPMDependencies,
		DirectRegistryDependencies: plan.direct,
		IsPublic:                   pointer.Fallback(input.IsPublic, true),
		Owner:                      owner,
	}

	failed := func(step Step, demoIndex int, demos []*component.Demo, cause error) error {
		failure := &Error{Step: step, DemoIndex: demoIndex, Cause: cause}
		if step != StepUploadComponent && step != StepInsertComponent {
			failure.ComponentID = published.ID
		}
		for _, demo := range demos {
			failure.DemoIDs = append(failure.DemoIDs, demo.ID)
		}
		return failure
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		published.CodeURL, err = service.upload(groupCtx, path.Join(folder, "code.tsx"), storage.File{Name: "code.tsx", ContentType: "text/plain", Text: input.Code})
		return err
	})
	if input.TailwindConfig != "" {
		group.Go(func() error {
			url, err := service.upload(groupCtx, path.Join(folder, "tailwind.config.js"), storage.File{Name: "tailwind.config.js", ContentType: "text/plain", Text: input.TailwindConfig})
			published.TailwindConfigURL = &url
			return err
		})
	}
	if input.GlobalCSS != "" {
		group.Go(func() error {
			url, err := service.upload(groupCtx, path.Join(folder, "globals.css"), storage.File{Name: "globals.css", ContentType: "text/css", Text: input.GlobalCSS})
			published.GlobalCSSURL = &url
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, failed(StepUploadComponent, -1, nil, err)
	}

	if err := service.store.CreateComponent(ctx, published); err != nil {
		return nil, failed(StepInsertComponent, -1, nil, err)
	}

	// ## Demos
	demos := make([]*component.Demo, 0, len(input.Demos))
	for index, demoInput := range input.Demos {
		name := demoInput.Name
		if name == "" {
			name = "Default"
		}

		demo := &component.Demo{
			ID:                             uuid.New(),
			ComponentID:                    published.ID,
			UserID:                         owner.ID,
			Name:                           name,
			DemoSlug:                       plan.slugs[index],
			DemoDependencies:               plan.parsed[index].DemoNPMDependencies,
			DemoDirectRegistryDependencies: plan.demo[index],
			CompiledCSS:                    demoInput.CompiledCSS,
		}
		if err := service.store.CreateDemo(ctx, demo); err != nil {
			return nil, failed(StepInsertDemo, index, demos, err)
		}
		demos = append(demos, demo)

		assets, err := service.uploadDemo(ctx, path.Join(folder, demo.DemoSlug), demoInput)
		if err != nil {
			return nil, failed(StepUploadDemo, index, demos, err)
		}
		if err := service.store.UpdateDemoAssets(ctx, demo.ID, assets); err != nil {
			return nil, failed(StepUpdateDemo, index, demos, err)
		}
		demo.DemoCodeURL, demo.PreviewURL, demo.VideoURL = assets.DemoCodeURL, assets.PreviewURL, assets.VideoURL

		if tags := plan.tags[index]; len(tags) > 0 {
			if err := service.store.AttachTags(ctx, demo.ID, tags); err != nil {
				return nil, failed(StepAttachTags, index, demos, err)
			}
			demo.Tags = tags
		}
	}

	return &Result{Component: published, Demos: demos}, nil
}

// owner resolves the account the component is published under.
func (service *Service) owner(ctx context.Context, publisher *sec.AuthClaims, publishAs string) (*component.Owner, error) {
	if publisher == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	username := publisher.Username
	if publishAs != "" && publishAs != publisher.Username {
		if !sec.UserRole(publisher.Role).AtLeast(sec.RoleAdmin) {
			return nil, apperr.Forbidden("Only admins can publish as another user")
		}
		username = publishAs
	}

	owner, err := service.store.FindOwner(ctx, username)
	if err != nil {
		if appErr := apperr.As(err); appErr != nil && appErr.HTTPStatus == http.StatusNotFound {
			return nil, apperr.ValidationError("Unknown publisher", apperr.FieldError{Field: FieldPublishAsUsername, Message: "No user named " + username})
		}
		return nil, err
	}
	return owner, nil
}

// uploadDemo uploads one demo's files concurrently.
func (service *Service) uploadDemo(ctx context.Context, folder string, input DemoInput) (component.DemoAssets, error) {
	var assets component.DemoAssets
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() (err error) {
		assets.DemoCodeURL, err = service.upload(groupCtx, path.Join(folder, "code.demo.tsx"), storage.File{Name: "code.demo.tsx", ContentType: "text/plain", Text: input.DemoCode})
		return err
	})
	if input.PreviewImage.present() {
		group.Go(func() error {
			url, err := service.upload(groupCtx, path.Join(folder, "preview.png"), mediaFile("preview.png", "image/png", input.PreviewImage))
			assets.PreviewURL = &url
			return err
		})
	}
	if input.Video.present() {
		group.Go(func() error {
			url, err := service.upload(groupCtx, path.Join(folder, "video.mp4"), mediaFile("video.mp4", "video/mp4", input.Video))
			assets.VideoURL = &url
			return err
		})
	}

	return assets, group.Wait()
}

func (service *Service) upload(ctx context.Context, key string, file storage.File) (string, error) {
	url, err := service.uploader.Upload(ctx, key, file)
	if err != nil {
		return "", err
	}
	service.metrics.PublishedUploads.WithLabelValues(path.Ext(file.Name)).Inc()
	return url, nil
}
