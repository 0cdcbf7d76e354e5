package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/vector-cv/services"
	"github.com/upb/vector-cv/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	code := services.GetErrorCode(err)
	details := services.GetErrorDetails(err)
	message := errorMessage(err)

	var writeErr error
	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, message)

	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, code, message, details)

	case services.IsRateLimitError(err):
		writeErr = utils.WriteTooManyRequests(w, code, message, details)

	case services.IsConflictError(err):
		writeErr = utils.WriteConflict(w, message, details)

	case services.IsExternalError(err):
		// upstream AI failures; the cause stays in the log
		logger.Warn("upstream provider error", zap.Error(err), zap.String("code", code))
		writeErr = utils.WriteBadGateway(w, code, message, details)

	case services.IsInternalError(err):
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// errorMessage returns the client facing message of a domain error without
// the wrapped cause
func errorMessage(err error) string {
	var de *services.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "validation_failed", "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, "", err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}

// decodeAndValidate reads the request body into dst and validates it. It
// writes the 400 response itself and reports whether the handler can go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	if err := utils.DecodeJSON(r, dst); err != nil {
		logger.Debug("failed to parse request body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "invalid_body", err.Error(), nil)
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		logger.Debug("request validation failed", zap.Error(err))
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}
