package errors

import (
	"net/http"
	"strings"
)

// ErrorCode identifies a failure as "<MODULE>_<NNN>".  The module prefix
// tells clients which part of the service produced it.
type ErrorCode string

func (c ErrorCode) String() string { return string(c) }

// Module reports the prefix of c, or c itself when it has none.
func (c ErrorCode) Module() string {
	if mod, _, ok := strings.Cut(string(c), "_"); ok && mod != "" {
		return mod
	}
	return string(c)
}

// COMMON: cross-cutting failures.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
	ErrCodeConfigError        ErrorCode = "COMMON_017"
)

// CTR: contracts, categories, trash and settings.
const (
	ErrCodeContractNotFound     ErrorCode = "CTR_001"
	ErrCodeCategoryNotFound     ErrorCode = "CTR_002"
	ErrCodeCategoryExists       ErrorCode = "CTR_003"
	ErrCodeContractNotInTrash   ErrorCode = "CTR_004"
	ErrCodeDocumentUnavailable  ErrorCode = "CTR_005"
	ErrCodeSettingsInvalidValue ErrorCode = "CTR_006"
)

// RMD: reminder sweeps.
const (
	ErrCodeReminderAlreadySent ErrorCode = "RMD_001"
	ErrCodeSweepLocked         ErrorCode = "RMD_002"
)

// NTF: Talk and email delivery.
const (
	ErrCodeTransportFailure       ErrorCode = "NTF_001"
	ErrCodeTransportNotConfigured ErrorCode = "NTF_002"
	ErrCodeRecipientUnknown       ErrorCode = "NTF_003"
)

// Pseudo codes returned by GetCode.  They are not registered.
const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Shorter names used at call sites.  The queue and storage codes share
// the external-service code since both surface as 502.
const (
	CodeInternal          = ErrCodeInternal
	CodeInvalidParam      = ErrCodeBadRequest
	CodeUnauthorized      = ErrCodeUnauthorized
	CodeForbidden         = ErrCodeForbidden
	CodeNotFound          = ErrCodeNotFound
	CodeConflict          = ErrCodeConflict
	CodeValidation        = ErrCodeValidation
	CodeNotImplemented    = ErrCodeNotImplemented
	CodeDatabaseError     = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeExternalService   = ErrCodeExternalService
	CodeMessageQueueError = ErrCodeExternalService
	CodeStorageError      = ErrCodeExternalService
	CodeContractNotFound  = ErrCodeContractNotFound
	CodeCategoryNotFound  = ErrCodeCategoryNotFound
	CodeAlreadySent       = ErrCodeReminderAlreadySent
	CodeTransportFailure  = ErrCodeTransportFailure
)

type codeInfo struct {
	status  int
	message string
}

var registry = map[ErrorCode]codeInfo{
	ErrCodeInternal:           {http.StatusInternalServerError, "internal server error"},
	ErrCodeBadRequest:         {http.StatusBadRequest, "bad request"},
	ErrCodeUnauthorized:       {http.StatusUnauthorized, "unauthorized"},
	ErrCodeForbidden:          {http.StatusForbidden, "forbidden"},
	ErrCodeNotFound:           {http.StatusNotFound, "resource not found"},
	ErrCodeConflict:           {http.StatusConflict, "resource conflict"},
	ErrCodeTooManyRequests:    {http.StatusTooManyRequests, "too many requests"},
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, "service unavailable"},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, "request timeout"},
	ErrCodeValidation:         {http.StatusUnprocessableEntity, "validation failed"},
	ErrCodeSerialization:      {http.StatusBadRequest, "serialization failed"},
	ErrCodeDatabaseError:      {http.StatusInternalServerError, "database error"},
	ErrCodeCacheError:         {http.StatusInternalServerError, "cache error"},
	ErrCodeExternalService:    {http.StatusBadGateway, "external service error"},
	ErrCodeFeatureDisabled:    {http.StatusNotImplemented, "feature disabled"},
	ErrCodeNotImplemented:     {http.StatusNotImplemented, "not implemented"},
	ErrCodeConfigError:        {http.StatusInternalServerError, "invalid configuration"},

	ErrCodeContractNotFound:     {http.StatusNotFound, "contract not found"},
	ErrCodeCategoryNotFound:     {http.StatusNotFound, "category not found"},
	ErrCodeCategoryExists:       {http.StatusConflict, "category already exists"},
	ErrCodeContractNotInTrash:   {http.StatusConflict, "contract is not in trash"},
	ErrCodeDocumentUnavailable:  {http.StatusNotFound, "contract document unavailable"},
	ErrCodeSettingsInvalidValue: {http.StatusUnprocessableEntity, "invalid settings value"},

	ErrCodeReminderAlreadySent: {http.StatusConflict, "reminder already sent"},
	ErrCodeSweepLocked:         {http.StatusConflict, "sweep already running"},

	ErrCodeTransportFailure:       {http.StatusBadGateway, "notification delivery failed"},
	ErrCodeTransportNotConfigured: {http.StatusServiceUnavailable, "notification transport not configured"},
	ErrCodeRecipientUnknown:       {http.StatusNotFound, "notification recipient unknown"},
}

// Registered reports whether code has a status and message.
func Registered(code ErrorCode) bool {
	_, ok := registry[code]
	return ok
}

// HTTPStatusForCode returns the status for code.  Unregistered codes are 500.
func HTTPStatusForCode(code ErrorCode) int {
	if info, ok := registry[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// IsServerError reports whether code maps to a 5xx status.  Messages of
// such errors are not shown to API clients.
func IsServerError(code ErrorCode) bool {
	return HTTPStatusForCode(code) >= http.StatusInternalServerError
}

func DefaultMessageForCode(code ErrorCode) string {
	if info, ok := registry[code]; ok {
		return info.message
	}
	return "unknown error"
}

//Personal.AI order the ending
