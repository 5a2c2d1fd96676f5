package http

import (
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
	"github.com/gofiber/fiber/v2"
)

// ResponseError is the structured error envelope `{error, code, details?}`
// carried on every failing response.
type ResponseError struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// FieldValidations is a map of known fields and their validation errors.
type FieldValidations map[string]string

// WithError converts a typed apperr value (or an unknown error) into the
// fiber response carrying the right HTTP status and the structured envelope.
func WithError(c *fiber.Ctx, err error) error {
	switch e := err.(type) {
	case apperr.NotFoundError:
		return c.Status(fiber.StatusNotFound).JSON(ResponseError{Error: e.Error(), Code: e.Code})
	case apperr.ValidationError:
		details := map[string]any{}
		for k, v := range e.Details {
			details[k] = v
		}

		return c.Status(fiber.StatusBadRequest).JSON(ResponseError{Error: e.Error(), Code: e.Code, Details: details})
	case apperr.ConflictError:
		return c.Status(fiber.StatusConflict).JSON(ResponseError{Error: e.Error(), Code: e.Code})
	case apperr.UnauthorizedError:
		return c.Status(fiber.StatusUnauthorized).JSON(ResponseError{Error: e.Error(), Code: e.Code})
	case apperr.ForbiddenError:
		return c.Status(fiber.StatusForbidden).JSON(ResponseError{Error: e.Error(), Code: e.Code})
	case apperr.QuotaExceededError:
		return c.Status(fiber.StatusTooManyRequests).JSON(ResponseError{Error: e.Error(), Code: e.Code, Details: e.Details})
	case apperr.RateLimitedError:
		c.Set("X-RateLimit-Limit", itoa(e.Limit))
		c.Set("X-RateLimit-Remaining", itoa(e.Remaining))
		c.Set("X-RateLimit-Reset", itoa64(e.ResetMs))

		return c.Status(fiber.StatusTooManyRequests).JSON(ResponseError{Error: e.Error(), Code: e.Code})
	case apperr.PolicyViolationError:
		return c.Status(fiber.StatusForbidden).JSON(ResponseError{Error: e.Error(), Code: e.Code})
	case apperr.InternalError:
		return c.Status(fiber.StatusInternalServerError).JSON(ResponseError{Error: "internal server error", Code: e.Code})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ResponseError{
			Error: "internal server error",
			Code:  "internal_error",
		})
	}
}

func itoa(n int) string {
	return itoa64(int64(n))
}

func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}

	neg := n < 0
	if neg {
		n = -n
	}

	var buf [20]byte

	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}

	if neg {
		i--
		buf[i] = '-'
	}

	return string(buf[i:])
}
