package server

import (
	"errors"

	"github.com/me/nada/pkg/kestra"
	"github.com/me/nada/pkg/model"
)

// errorCode classifies an error from the launcher or resolver.
func errorCode(err error) model.ErrorCode {
	var extractErr *model.ExtractionFailedError
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return model.ErrValidation
	case errors.As(err, &extractErr):
		return model.ErrExtraction
	case kestra.IsEngineRejected(err):
		return model.ErrEngineRejected
	case kestra.IsTransport(err):
		return model.ErrTransport
	default:
		return model.ErrInternal
	}
}
