package docstore

import "errors"

var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidArgument = errors.New("invalid document reference")
)
