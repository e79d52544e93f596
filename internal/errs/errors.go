package errs

import "errors"

var (
	ErrNoCameras        = errors.New("no camera could be opened")
	ErrPollerRunning    = errors.New("poller is already running")
	ErrPollerStopped    = errors.New("poller is not running")
	ErrCameraOpen       = errors.New("camera could not be opened")
	ErrGrab             = errors.New("frame grab failed")
	ErrRetrieve         = errors.New("frame retrieve failed")
	ErrRetriesExhausted = errors.New("reconnect retries exhausted")
	ErrModelNotLoaded   = errors.New("detection model not loaded")

	ErrMarkNotFound   = errors.New("mark not found")
	ErrVideoNotFound  = errors.New("video not found")
	ErrNoMarks        = errors.New("video has no marks")
	ErrOutputDirUnset = errors.New("output directory is not set")
	ErrCutFailed      = errors.New("all cut strategies failed")
	ErrEmptyOutput    = errors.New("transcoder produced no output")
	ErrExportNotFound = errors.New("export job not found")

	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrSegmentNotFound  = errors.New("segment not found")

	ErrInvalidCredentials = errors.New("invalid credentials")
)
