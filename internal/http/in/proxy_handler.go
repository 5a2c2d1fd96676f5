package in

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/Braden-sui/Vibecodr-sub002/internal/service/egressproxy"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
	nethttp "github.com/Braden-sui/Vibecodr-sub002/pkg/net/http"
)

// PlanLookup resolves the caller's current plan for the proxy's free-plan
// gate.
type PlanLookup interface {
	PlanFor(ctx context.Context, userID string) (string, error)
}

// ProxyHandler serves the Egress Proxy route (GET /proxy), backed by
// egressproxy.Forwarder's 8-step state machine.
type ProxyHandler struct {
	Forwarder *egressproxy.Forwarder
	Plans     PlanLookup
}

// Forward handles GET /proxy?url=...&capsuleId=....
func (h *ProxyHandler) Forward(c *fiber.Ctx) error {
	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	rawURL := c.Query("url")
	capsuleID := c.Query("capsuleId")

	if rawURL == "" || capsuleID == "" {
		return nethttp.WithError(c, apperr.ValidationError{
			EntityType: "proxy",
			Code:       "missing_parameter",
			Message:    "url and capsuleId query parameters are required",
		})
	}

	callerPlan := "free"
	if h.Plans != nil {
		if p, err := h.Plans.PlanFor(c.UserContext(), userID); err == nil && p != "" {
			callerPlan = p
		}
	}

	resp, err := h.Forwarder.Forward(c.UserContext(), egressproxy.Request{
		URL:         rawURL,
		CapsuleID:   capsuleID,
		CallerID:    userID,
		CallerPlan:  callerPlan,
		Method:      fiber.MethodGet,
		BodyHeaders: nil,
	})
	if err != nil {
		if rlErr, ok := err.(apperr.RateLimitedError); ok {
			for k, v := range egressproxy.RateLimitHeadersFor(rlErr) {
				c.Set(k, v)
			}
		}

		return nethttp.WithError(c, err)
	}
	defer resp.Body.Close()

	for k, vs := range resp.Header {
		for _, v := range vs {
			c.Set(k, v)
		}
	}

	c.Status(resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nethttp.WithError(c, apperr.ValidateInternalError(err, "proxy"))
	}

	return c.Send(body)
}
