package publish

import "errors"

var (
	// ErrNoActiveDocument aborts a publish before anything is extracted
	ErrNoActiveDocument = errors.New("no active document")

	ErrResourceNotFound = errors.New("image not found")
	ErrResourceRead     = errors.New("failed to read image")
	ErrRemoteUpload     = errors.New("remote upload failed")

	// ErrNothingToPublish is returned when images were referenced but none uploaded
	ErrNothingToPublish = errors.New("no image uploaded")

	ErrPublishDisabled   = errors.New("publishing is disabled")
	ErrPublishInProgress = errors.New("a publish is already running")

	ErrRemoteUploadDisabled = errors.New("remote image upload is disabled")
	ErrAlreadyHosted        = errors.New("image is already hosted by the active backend")
)
