package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/ctxutil"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
	"github.com/gofiber/fiber/v2"
)

// RequestInfo stores the fields needed to emit one access-log line.
type RequestInfo struct {
	Method        string
	URI           string
	Referer       string
	RemoteAddress string
	Status        int
	Date          time.Time
	Duration      time.Duration
	UserAgent     string
	CorrelationID string
	Protocol      string
	Size          int
}

// NewRequestInfo snapshots the request side of RequestInfo before the
// handler chain runs.
func NewRequestInfo(c *fiber.Ctx) *RequestInfo {
	referer := "-"
	if c.Get("Referer") != "" {
		referer = c.Get("Referer")
	}

	return &RequestInfo{
		Method:        c.Method(),
		URI:           c.OriginalURL(),
		Referer:       referer,
		UserAgent:     c.Get(headerUserAgent),
		CorrelationID: c.Get(headerCorrelationID),
		RemoteAddress: c.IP(),
		Protocol:      c.Protocol(),
		Date:          time.Now().UTC(),
	}
}

// CLFString renders an access-log line in Apache Common Log Format.
func (r *RequestInfo) CLFString() string {
	return strings.Join([]string{
		r.RemoteAddress,
		"-",
		"-",
		`"` + r.Method,
		r.URI,
		`"` + r.Protocol,
		strconv.Itoa(r.Status),
		strconv.Itoa(r.Size),
		r.Referer,
		r.UserAgent,
	}, " ")
}

func (r *RequestInfo) String() string { return r.CLFString() }

// finish records the response side once the handler chain has returned.
func (r *RequestInfo) finish(c *fiber.Ctx) {
	r.Duration = time.Now().UTC().Sub(r.Date)
	r.Status = c.Response().StatusCode()
	r.Size = len(c.Response().Body())
}

// WithHTTPLogging logs one CLF-formatted access line per request and
// attaches the logger to the request's user context so downstream handlers
// pull it via mlog.NewLoggerFromContext instead of a package-level logger.
func WithHTTPLogging(logger mlog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/health" || c.Path() == "/ready" {
			return c.Next()
		}

		info := NewRequestInfo(c)
		requestLogger := logger.WithFields(headerCorrelationID, info.CorrelationID)
		c.SetUserContext(mlog.ContextWithLogger(ctxutil.ContextWithLogger(c.UserContext(), requestLogger), requestLogger))

		err := c.Next()

		info.finish(c)
		requestLogger.Infoln(info)

		return err
	}
}
