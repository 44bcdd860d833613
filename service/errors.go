package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"video-library/pkg/metrics"
)

// Kind is the error class a caller reacts to.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindNotFound        Kind = "not_found"
	KindRemoteService   Kind = "remote_service"
	// KindPersistence marks local store failures. A persistence failure after remote success can
	// leave remote and local state diverged, so it is always logged at error level.
	KindPersistence Kind = "persistence"
)

// Code names the precise failure within a pipeline.
type Code string

const (
	CodeInvalidInput          Code = "invalid_input"
	CodeFileTooLarge          Code = "file_too_large"
	CodeUnauthenticated       Code = "unauthenticated"
	CodeNotFound              Code = "not_found"
	CodeRemoteUploadFailed    Code = "remote_upload_failed"
	CodeMetadataPersistFailed Code = "metadata_persist_failed"
	CodeAssetNotFound         Code = "asset_not_found"
	CodeMediaFetchFailed      Code = "media_fetch_failed"
	CodeTranscriptionFailed   Code = "transcription_failed"
	CodeArtifactUploadFailed  Code = "artifact_upload_failed"
	CodeSubtitlePersistFailed Code = "subtitle_persist_failed"
	CodeDeletePersistFailed   Code = "delete_persist_failed"
	CodeStoreUnavailable      Code = "store_unavailable"
)

// Error is the discriminated failure every orchestrator returns.
type Error struct {
	Kind    Kind
	Code    Code
	Stage   string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, code Code, stage, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Stage: stage, Message: message, Err: err}
}

func (e *Error) with(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

func ErrUnauthenticated() *Error {
	return newError(KindUnauthenticated, CodeUnauthenticated, "", "authentication required", nil)
}

func errNotFound(stage string, err error) *Error {
	return newError(KindNotFound, CodeNotFound, stage, "video not found", err)
}

func errInvalid(message string) *Error {
	return newError(KindValidation, CodeInvalidInput, "validate", message, nil)
}

// AsError unwraps err into a service error, classifying unknown errors as store failures.
func AsError(err error) *Error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return newError(KindPersistence, CodeStoreUnavailable, "", "internal error", err)
}

func CodeOf(err error) Code {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ""
}

func logFailure(ctx context.Context, pipeline string, err error) {
	svcErr := AsError(err)
	var event *zerolog.Event
	switch svcErr.Kind {
	case KindValidation, KindNotFound, KindUnauthenticated:
		event = zerolog.Ctx(ctx).Info()
	default:
		event = zerolog.Ctx(ctx).Error()
	}
	event.Err(svcErr.Err).
		Str("pipeline", pipeline).
		Str("error_class", string(svcErr.Kind)).
		Str("error_code", string(svcErr.Code)).
		Str("stage", svcErr.Stage).
		Fields(svcErr.Details).
		Msg(svcErr.Message)
}

// observe records the outcome of a pipeline run and logs its failure, if any.
func observe(ctx context.Context, recorder *metrics.Recorder, pipeline string, started time.Time, err error) {
	if err == nil {
		recorder.Success(pipeline, started)
		return
	}
	svcErr := AsError(err)
	recorder.Failure(pipeline, string(svcErr.Kind), string(svcErr.Code), started)
	logFailure(ctx, pipeline, svcErr)
}
