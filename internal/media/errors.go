package media

import (
	"fmt"

	"learncards/internal/util"
)

// MediaError reports a probe or render failure for one video.
type MediaError struct {
	Op    string
	Video string
	Err   error
}

func newMediaError(op, video string, err error) *MediaError {
	return &MediaError{Op: op, Video: video, Err: err}
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Video, e.Err)
}

func (e *MediaError) Unwrap() []error {
	return []error{util.ErrMedia, e.Err}
}
