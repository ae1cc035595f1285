package service

import (
	"errors"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/billspace/internal/core"
	"github.com/mmynk/billspace/internal/validation"
)

// toConnectError maps a core error kind onto its Connect code. Validation
// violations and split mismatches travel as a google.protobuf.Struct detail.
func toConnectError(err error) *connect.Error {
	var code connect.Code
	switch {
	case errors.Is(err, core.ErrValidation):
		code = connect.CodeInvalidArgument
	case errors.Is(err, core.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, core.ErrConflict):
		code = connect.CodeAlreadyExists
	case errors.Is(err, core.ErrDenied):
		code = connect.CodePermissionDenied
	case errors.Is(err, core.ErrInvariant):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, core.ErrUnauthenticated):
		code = connect.CodeUnauthenticated
	default:
		code = connect.CodeInternal
	}

	connectErr := connect.NewError(code, err)
	if fields := errorFields(err); fields != nil {
		if detail, derr := structpb.NewStruct(fields); derr == nil {
			if d, derr := connect.NewErrorDetail(detail); derr == nil {
				connectErr.AddDetail(d)
			}
		}
	}
	return connectErr
}

func errorFields(err error) map[string]any {
	var verr *validation.Error
	if errors.As(err, &verr) {
		violations := make([]any, len(verr.Violations))
		for i, v := range verr.Violations {
			violations[i] = map[string]any{
				"field":   v.Field,
				"rule":    v.Rule,
				"message": v.Message,
			}
		}
		return map[string]any{"violations": violations}
	}

	var mismatch *core.SplitMismatchError
	if errors.As(err, &mismatch) {
		return map[string]any{
			"expected": mismatch.Expected.String(),
			"actual":   mismatch.Actual.String(),
			"delta":    mismatch.Delta.String(),
		}
	}
	return nil
}

// ErrorDetail returns the structured detail attached to err, if any.
func ErrorDetail(err error) map[string]any {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return nil
	}
	for _, d := range connectErr.Details() {
		msg, derr := d.Value()
		if derr != nil {
			continue
		}
		if s, ok := msg.(*structpb.Struct); ok {
			return s.AsMap()
		}
	}
	return nil
}
