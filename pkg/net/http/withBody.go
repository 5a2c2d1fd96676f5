package http

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/google/uuid"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/constant"

	"github.com/gofiber/fiber/v2"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	en2 "gopkg.in/go-playground/validator.v9/translations/en"

	"gopkg.in/go-playground/validator.v9"
)

// DecodeHandlerFunc receives a struct already decoded by WithBody/WithDecode.
type DecodeHandlerFunc func(p any, c *fiber.Ctx) error

// PayloadContextValue is the c.Locals key used to stash a decoded payload.
type PayloadContextValue string

// ConstructorFunc builds a fresh instance of a request-body type.
type ConstructorFunc func() any

type decoderHandler struct {
	handler      DecodeHandlerFunc
	constructor  ConstructorFunc
	structSource any
}

func newOfType(s any) any {
	t := reflect.TypeOf(s)
	v := reflect.New(t.Elem())

	return v.Interface()
}

// FiberHandlerFunc decodes the request body into a fresh struct, rejects any
// field the struct doesn't declare (RFC 7396-style strictness), validates
// it, and calls the wrapped handler.
func (d *decoderHandler) FiberHandlerFunc(c *fiber.Ctx) error {
	var s any
	if d.constructor != nil {
		s = d.constructor()
	} else {
		s = newOfType(d.structSource)
	}

	bodyBytes := c.Body()

	if err := json.Unmarshal(bodyBytes, s); err != nil {
		return WithError(c, constant.Translate(constant.ErrBadRequest, ""))
	}

	marshaled, err := json.Marshal(s)
	if err != nil {
		return WithError(c, apperr.ValidateInternalError(err, ""))
	}

	var originalMap, marshaledMap map[string]any

	if err := json.Unmarshal(bodyBytes, &originalMap); err != nil {
		return WithError(c, constant.Translate(constant.ErrBadRequest, ""))
	}

	if err := json.Unmarshal(marshaled, &marshaledMap); err != nil {
		return WithError(c, apperr.ValidateInternalError(err, ""))
	}

	diffFields := make(map[string]any)

	for key, value := range originalMap {
		if _, ok := marshaledMap[key]; !ok {
			diffFields[key] = value
		}
	}

	if len(diffFields) > 0 {
		return WithError(c, constant.ValidateBadRequestFieldsError(nil, "", diffFields))
	}

	if err := ValidateStruct(s); err != nil {
		return WithError(c, err)
	}

	c.Locals("fields", diffFields)

	return d.handler(s, c)
}

// WithDecode wraps handler h, providing it the struct built by constructor c.
func WithDecode(c ConstructorFunc, h DecodeHandlerFunc) fiber.Handler {
	d := &decoderHandler{handler: h, constructor: c}
	return d.FiberHandlerFunc
}

// WithBody wraps handler h, providing it a fresh instance of the type of s.
func WithBody(s any, h DecodeHandlerFunc) fiber.Handler {
	d := &decoderHandler{handler: h, structSource: s}
	return d.FiberHandlerFunc
}

// SetBodyInContext stashes the decoded payload on c.Locals for handlers that
// take the plain fiber.Handler shape instead of DecodeHandlerFunc.
func SetBodyInContext(handler fiber.Handler) DecodeHandlerFunc {
	return func(s any, c *fiber.Ctx) error {
		c.Locals(string(PayloadContextValue("payload")), s)
		return handler(c)
	}
}

// GetPayloadFromContext retrieves the payload stashed by SetBodyInContext.
func GetPayloadFromContext(c *fiber.Ctx) any {
	return c.Locals(string(PayloadContextValue("payload")))
}

// ValidateStruct runs struct-tag validation (gopkg.in/go-playground/validator.v9)
// over s, translating field errors into a ValidationError apperr value.
func ValidateStruct(s any) error {
	v, trans := newValidator()

	k := reflect.ValueOf(s).Kind()
	if k == reflect.Ptr {
		k = reflect.ValueOf(s).Elem().Kind()
	}

	if k != reflect.Struct {
		return nil
	}

	err := v.Struct(s)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.ValidateInternalError(err, "")
	}

	details := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		details[fe.Field()] = fe.Translate(trans)
	}

	return apperr.ValidationError{
		Code:    constant.ErrBadRequest.Error(),
		Title:   "Bad Request",
		Message: "One or more fields failed validation.",
		Details: details,
	}
}

// ParseUUIDPathParameters parses every path parameter as a UUID and stores
// the parsed value back into c.Locals under the same param name, since every
// route in this API addresses entities by UUID.
func ParseUUIDPathParameters(c *fiber.Ctx) error {
	params := c.AllParams()

	var invalidParams []string

	for param, value := range params {
		parsed, err := uuid.Parse(value)
		if err != nil {
			invalidParams = append(invalidParams, param)
			continue
		}

		c.Locals(param, parsed)
	}

	if len(invalidParams) > 0 {
		return WithError(c, constant.Translate(constant.ErrInvalidPathParameter, "", strings.Join(invalidParams, ", ")))
	}

	return c.Next()
}

//nolint:ireturn
func newValidator() (*validator.Validate, ut.Translator) {
	locale := en.New()
	uni := ut.New(locale, locale)

	trans, _ := uni.GetTranslator("en")

	v := validator.New()
	if err := en2.RegisterDefaultTranslations(v, trans); err != nil {
		panic(err)
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return v, trans
}
