package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	PeersErrorStorageFailure  = "PEERS_STORAGE_FAILURE"
	PeersErrorCorruptedRecord = "PEERS_CORRUPTED_RECORD"
	PeersErrorUnauthorized    = "PEERS_UNAUTHORIZED"
	PeersErrorBadInput        = "PEERS_BAD_INPUT"
	PeersErrorInternal        = "PEERS_INTERNAL_ERROR"
)

// ErrorCode is the numeric classification returned at the boundary. Values are
// part of the wire contract and must not be renumbered.
type ErrorCode int32

const (
	CodeSuccess         ErrorCode = 0
	CodeStorageFailure  ErrorCode = 1
	CodeCorruptedRecord ErrorCode = 2
	CodeInternal        ErrorCode = 3
	CodeInvalidArgument ErrorCode = 4
	CodeUnauthorized    ErrorCode = 5
)

func (c ErrorCode) String() string {
	switch c {
	case CodeSuccess:
		return "success"
	case CodeStorageFailure:
		return "storage_failure"
	case CodeCorruptedRecord:
		return "corrupted_record"
	case CodeInvalidArgument:
		return "invalid_argument"
	case CodeUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

var (
	ErrStorageFailure  = errors.New("core: storage failure")
	ErrCorruptedRecord = errors.New("core: corrupted record")
	ErrUnauthorized    = errors.New("core: caller is not authorized")
	ErrInvalidArgument = errors.New("core: invalid argument")
)

// StorageFailure wraps a backend error so it is never mistaken for "not registered".
func StorageFailure(cause error, operation string) error {
	if cause == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(cause, &rich) && classifyTextCode(rich.TextCode) != CodeInternal {
		return cause
	}
	return goerrors.Wrap(joinSentinel(ErrStorageFailure, cause), goerrors.CategoryExternal, "storage "+operation+" failed").
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(PeersErrorStorageFailure).
		WithMetadata(map[string]any{"operation": operation})
}

// CorruptedRecord reports a stored row whose shape does not match the schema.
func CorruptedRecord(peerID string, detail string) error {
	return goerrors.Wrap(ErrCorruptedRecord, goerrors.CategoryInternal, "corrupted registration record: "+detail).
		WithCode(http.StatusInternalServerError).
		WithTextCode(PeersErrorCorruptedRecord).
		WithSeverity(goerrors.SeverityCritical).
		WithMetadata(map[string]any{"peer_id": peerID})
}

func unauthorized(access AccessContext, operation string) error {
	return goerrors.Wrap(ErrUnauthorized, goerrors.CategoryAuthz, "caller is not allowed to "+operation+" peers").
		WithCode(http.StatusForbidden).
		WithTextCode(PeersErrorUnauthorized).
		WithMetadata(map[string]any{
			"caller_id": access.CallerID,
			"operation": operation,
		})
}

func invalidArgument(field string, message string) error {
	return goerrors.NewValidation("core: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(PeersErrorBadInput).
		WithSeverity(goerrors.SeverityError)
}

func internalError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(PeersErrorInternal)
}

// ClassifyError maps any error to its stable numeric code.
func ClassifyError(err error) ErrorCode {
	if err == nil {
		return CodeSuccess
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if code := classifyTextCode(rich.TextCode); code != CodeInternal {
			return code
		}
		if strings.TrimSpace(rich.TextCode) == PeersErrorInternal {
			return CodeInternal
		}
		switch rich.Category {
		case goerrors.CategoryBadInput, goerrors.CategoryValidation:
			return CodeInvalidArgument
		case goerrors.CategoryAuth, goerrors.CategoryAuthz:
			return CodeUnauthorized
		case goerrors.CategoryExternal:
			return CodeStorageFailure
		}
	}
	switch {
	case errors.Is(err, ErrCorruptedRecord):
		return CodeCorruptedRecord
	case errors.Is(err, ErrStorageFailure):
		return CodeStorageFailure
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	}
	return CodeInternal
}

func IsUnauthorized(err error) bool {
	return ClassifyError(err) == CodeUnauthorized
}

func IsStorageFailure(err error) bool {
	code := ClassifyError(err)
	return code == CodeStorageFailure || code == CodeCorruptedRecord
}

func classifyTextCode(textCode string) ErrorCode {
	switch strings.TrimSpace(textCode) {
	case PeersErrorStorageFailure:
		return CodeStorageFailure
	case PeersErrorCorruptedRecord:
		return CodeCorruptedRecord
	case PeersErrorUnauthorized:
		return CodeUnauthorized
	case PeersErrorBadInput:
		return CodeInvalidArgument
	default:
		return CodeInternal
	}
}

func peersErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensurePeersErrorEnvelope(richErr)
	}

	switch ClassifyError(err) {
	case CodeStorageFailure:
		return newPeersError(err.Error(), goerrors.CategoryExternal, PeersErrorStorageFailure)
	case CodeCorruptedRecord:
		return newPeersError(err.Error(), goerrors.CategoryInternal, PeersErrorCorruptedRecord)
	case CodeUnauthorized:
		return newPeersError(err.Error(), goerrors.CategoryAuthz, PeersErrorUnauthorized)
	case CodeInvalidArgument:
		return newPeersError(err.Error(), goerrors.CategoryBadInput, PeersErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensurePeersErrorEnvelope(mapped)
}

func newPeersError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensurePeersErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensurePeersErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = peersHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultPeersTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultPeersTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return PeersErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return PeersErrorUnauthorized
	case goerrors.CategoryExternal:
		return PeersErrorStorageFailure
	default:
		return PeersErrorInternal
	}
}

func peersHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func joinSentinel(sentinel error, cause error) error {
	if errors.Is(cause, sentinel) {
		return cause
	}
	return errors.Join(sentinel, cause)
}
