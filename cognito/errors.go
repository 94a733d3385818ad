package cognito

import (
	"errors"

	"github.com/aws/smithy-go"
)

// ErrorCode extracts the Cognito service error code ("NotAuthorizedException",
// "CodeMismatchException", ...) from an SDK error, or "" for transport and
// other non-API failures.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsAPIError reports whether the error is a Cognito service response rather
// than a transport failure.
func IsAPIError(err error) bool {
	return ErrorCode(err) != ""
}
