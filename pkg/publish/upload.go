package publish

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"redpost/pkg/config"
	"redpost/pkg/logging"
	"redpost/pkg/poll"
)

// Uploader submits media files to the platform's upload control and waits
// for the platform to finish ingesting them.
type Uploader struct {
	driver   Driver
	resolver *Resolver
	profiles config.UploadConfig
	logger   *logging.Logger
}

// NewUploader creates an uploader with the given completion profiles.
func NewUploader(driver Driver, resolver *Resolver, profiles config.UploadConfig, logger *logging.Logger) *Uploader {
	return &Uploader{
		driver:   driver,
		resolver: resolver,
		profiles: profiles,
		logger:   logger,
	}
}

// Submit hands all paths to the file input in a single batch. The control
// accepts multiple paths at once; submitting one by one would reset the
// platform's staging state.
func (u *Uploader) Submit(paths []string) error {
	selector, err := u.resolver.Resolve(TargetFileInput)
	if err != nil {
		return err
	}

	absolute := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return WrapError(KindUpload, err, "cannot resolve media path %s", p)
		}
		absolute = append(absolute, abs)
	}

	u.logger.Infof("Submitting %d media files to %s", len(absolute), selector)
	if err := u.driver.SetFiles(selector, absolute); err != nil {
		return WrapError(KindUpload, err, "file submission failed")
	}
	return nil
}

// AwaitCompletion polls for upload/processing completion using the
// kind-specific profile. If the ceiling elapses with no error marker on the
// page, the upload is optimistically treated as successful: the platform
// does not reliably surface a completion marker for every upload variant,
// so absence of an error signal after the ceiling is the best available
// positive signal. This can mask a genuinely silent failure, which the
// final submit stage would then surface instead.
func (u *Uploader) AwaitCompletion(ctx context.Context, kind MediaKind) error {
	interval, ceiling := u.profiles.ImageInterval, u.profiles.ImageTimeout
	if kind == MediaVideo {
		interval, ceiling = u.profiles.VideoInterval, u.profiles.VideoTimeout
	}

	u.logger.Infof("Waiting up to %s for %s upload to complete", ceiling, kind)

	err := poll.Until(ctx, interval, ceiling, func(ctx context.Context) (bool, error) {
		if u.resolver.Probe(TargetUploadError) {
			return false, NewError(KindUpload, "platform reported an upload error")
		}
		if u.resolver.Probe(TargetUploadSuccess) {
			return true, nil
		}
		if kind == MediaVideo {
			if u.resolver.Probe(TargetVideoComplete) {
				return true, nil
			}
			if u.resolver.Probe(TargetVideoProcessing) {
				u.logger.Debugf("Video still processing")
			}
		}
		return false, nil
	})

	switch {
	case err == nil:
		u.logger.Infof("Upload completed with an explicit success marker")
		return nil
	case errors.Is(err, poll.ErrCeiling):
		// Last look before going optimistic.
		if u.resolver.Probe(TargetUploadError) {
			return NewError(KindUpload, "platform reported an upload error after %s", ceiling)
		}
		u.logger.Warnf("No completion marker after %s, assuming %s upload succeeded", ceiling, kind)
		return nil
	default:
		return err
	}
}

// Upload is Submit followed by AwaitCompletion. Convenience for callers
// outside the staged pipeline.
func (u *Uploader) Upload(ctx context.Context, paths []string, kind MediaKind) error {
	if err := u.Submit(paths); err != nil {
		return err
	}
	return u.AwaitCompletion(ctx, kind)
}

// uploadSettle gives the platform a moment to register freshly submitted
// files before completion polling starts.
const uploadSettle = time.Second
