// Package dto provides Data Transfer Objects for API responses.
package dto

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error codes returned by the API.
const (
	CodeUserNotFound     = "USER_NOT_FOUND"
	CodeEntityNotFound   = "ENTITY_NOT_FOUND"
	CodeEntityExists     = "ENTITY_EXISTS"
	CodeInvalidJSON      = "INVALID_JSON"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInternal         = "INTERNAL_ERROR"
)
