package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")
	ErrMissingID    = errors.New("missing id")

	ErrUnsupportedContentType = errors.New("unsupported content type")

	ErrValidation   = errors.New("validation failed")
	ErrDatasetBuild = errors.New("failed to build dataset")
	ErrEvaluation   = errors.New("evaluation failed")
	ErrPersistence  = errors.New("failed to persist results")
)
