package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator caches struct metadata and is safe for
// concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

// maxBytes limits the encoded length of a string, where the built-in max
// counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// ValidateClientMessage checks an inbound push-channel message. It returns an
// *APIError describing the first validation failure, or nil if the message
// is valid.
func ValidateClientMessage(msg *ClientMessage) *APIError {
	if err := validate.Struct(msg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return NewInvalidRequestError("", err.Error())
	}
	if msg.Type == MessageCancel && msg.Prompt != "" {
		return NewInvalidRequestError("prompt", "prompt is not allowed on cancel")
	}
	return nil
}

// ValidatePrompt checks a prompt supplied outside a ClientMessage, such as
// the one-shot stream's query parameter.
func ValidatePrompt(prompt string) *APIError {
	if err := validate.Var(prompt, "max=65536"); err != nil {
		return NewInvalidRequestError("prompt", "prompt exceeds maximum of 65536 characters")
	}
	return nil
}

// fieldError maps a validator failure to an APIError keyed by the JSON
// field name.
func fieldError(fe validator.FieldError) *APIError {
	param := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return NewInvalidRequestError(param, param+" is required")
	case "max":
		return NewInvalidRequestError(param,
			fmt.Sprintf("%s exceeds maximum of %s characters", param, fe.Param()))
	case "maxbytes":
		return NewInvalidRequestError(param,
			fmt.Sprintf("%s exceeds maximum of %s bytes", param, fe.Param()))
	case "oneof":
		return NewInvalidRequestError(param,
			fmt.Sprintf("%s must be one of: %s", param, fe.Param()))
	default:
		return NewInvalidRequestError(param, fmt.Sprintf("%s is invalid", param))
	}
}

func jsonFieldName(field string) string {
	switch field {
	case "RequestID":
		return "request_id"
	default:
		return strings.ToLower(field)
	}
}
