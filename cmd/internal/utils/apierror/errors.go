package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse abstracts all client-facing error responses.
//
// This interface does not implement `error`, since its only purpose
// is to be sent back to the user (HTTP body or socket "error" event)
// and not for logging circumstances.
type ErrorResponse interface {
	// Code is the HTTP status code to be returned.
	Code() int
}

type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (a *APIError) Code() int {
	return a.Status
}

type StructuredError struct {
	Errors map[string][]string `json:"errors"`
	Status int                 `json:"-"`
}

func (s *StructuredError) Code() int {
	return s.Status
}

var (
	MalformedPayloadError = NewSimple(400, "Malformed event payload")
	UnknownEventError     = NewSimple(400, "Unknown event type")
	InternalServerError   = NewSimple(500, "Internal server error")
	NotFoundError         = NewSimple(404, "Resource not found")

	/*
	 * Used for authentications
	 */
	MissingAuthTokenError = NewSimple(401, "Authentication required")
	InvalidAuthTokenError = NewSimple(401, "Invalid or expired token")
	UnauthorizedError     = NewSimple(401, "Unauthorized")

	/*
	 * Messaging
	 */
	EmptyMessageError      = NewSimple(400, "Message cannot be empty")
	SendMessageFailedError = NewSimple(500, "Failed to send message")
)

func FromValidationError(err error) *StructuredError {
	var ve validator.ValidationErrors
	ok := errors.As(err, &ve)
	if !ok {
		return nil
	}

	problems := map[string][]string{}
	for _, fe := range ve {
		field := strings.ToLower(fe.Field())

		switch fe.Tag() {
		case "required":
			problems[field] = append(problems[field], "This field is required")
		case "min":
			problems[field] = append(problems[field], "Value is too short, min: "+fe.Param())
		case "max":
			problems[field] = append(problems[field], "Value is too long, max: "+fe.Param())
		case "nospaces":
			problems[field] = append(problems[field], "Value must not contain whitespaces")
		case "printable":
			problems[field] = append(problems[field], "Value must not contain control characters")

		default:
			problems[field] = append(problems[field], "Invalid value provided")
		}
	}

	return &StructuredError{
		Errors: problems,
		Status: http.StatusBadRequest,
	}
}

// Describe flattens an ErrorResponse into the single line carried by socket "error" events.
func Describe(resp ErrorResponse) string {
	switch e := resp.(type) {
	case *APIError:
		return e.Message
	case *StructuredError:
		fields := make([]string, 0, len(e.Errors))
		for field := range e.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		parts := make([]string, 0, len(fields))
		for _, field := range fields {
			parts = append(parts, field+": "+strings.Join(e.Errors[field], ", "))
		}
		return strings.Join(parts, "; ")
	default:
		return http.StatusText(resp.Code())
	}
}

func NewSimple(status int, msg string, args ...any) *APIError {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &APIError{Status: status, Message: msg}
}

func NewMessageTooLongError(max int) *APIError {
	return NewSimple(http.StatusBadRequest, "Message is too long (max %d characters)", max)
}

func NewMissingParamError(name string) *APIError {
	return NewSimple(http.StatusBadRequest, "Missing required parameter '%s'", name)
}
