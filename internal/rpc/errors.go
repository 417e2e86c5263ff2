/**
 * @description
 * Structured RPC errors.
 * Every failure crossing the RPC boundary carries a machine-readable code so
 * clients can branch on it without parsing messages.
 */

package rpc

import "github.com/gofiber/fiber/v2"

// Error codes carried across the RPC boundary
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL_SERVER_ERROR"
)

// Error is a coded RPC failure
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// BadRequest builds an input-validation failure
func BadRequest(message string) *Error {
	return &Error{Code: CodeBadRequest, Message: message}
}

// NotFound builds an unknown-procedure failure
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

// Internal wraps an unexpected failure without leaking its details
func Internal() *Error {
	return &Error{Code: CodeInternal, Message: "internal server error"}
}

// HTTPStatus maps a code to its transport status
func HTTPStatus(code string) int {
	switch code {
	case CodeBadRequest:
		return fiber.StatusBadRequest
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}
