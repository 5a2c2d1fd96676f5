package in

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Braden-sui/Vibecodr-sub002/internal/domain/plan"
	"github.com/Braden-sui/Vibecodr-sub002/internal/service/runsession"
	nethttp "github.com/Braden-sui/Vibecodr-sub002/pkg/net/http"
)

// StartRunInput is the request body for POST /runs/start.
type StartRunInput struct {
	CapsuleID  string `json:"capsuleId" validate:"required"`
	PostID     string `json:"postId,omitempty"`
	RunID      string `json:"runId,omitempty"`
	ArtifactID string `json:"artifactId,omitempty"`
}

// CompleteRunInput is the request body for POST /runs/complete. DurationMs
// is a pointer so an omitted duration can be derived from the run's
// started_at rather than being read as a literal zero.
type CompleteRunInput struct {
	RunID        string `json:"runId" validate:"required"`
	CapsuleID    string `json:"capsuleId,omitempty"`
	PostID       string `json:"postId,omitempty"`
	DurationMs   *int64 `json:"durationMs,omitempty"`
	Status       string `json:"status,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// AppendRunLogsInput is the request body for POST /runs/:id/logs.
type AppendRunLogsInput struct {
	Logs []struct {
		Level   string `json:"level"`
		Message string `json:"message"`
		Source  string `json:"source"`
	} `json:"logs" validate:"required,max=25"`
}

// RunHandler wires HTTP requests to the Run Session Manager. Plans resolves
// the caller's plan tier for the monthly quota check; a missing user row
// falls back to free.
type RunHandler struct {
	Manager *runsession.Manager
	Plans   PlanLookup
}

func userIDFromClaims(c *fiber.Ctx) (string, error) {
	claims, err := nethttp.ClaimsFromContext(c)
	if err != nil {
		return "", err
	}

	return claims.Subject, nil
}

// Start handles POST /runs/start.
func (h *RunHandler) Start(p any, c *fiber.Ctx) error {
	in := p.(*StartRunInput)

	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	callerPlan := plan.Free
	if h.Plans != nil {
		if raw, err := h.Plans.PlanFor(c.UserContext(), userID); err == nil {
			if parsed, err := plan.Parse(raw); err == nil {
				callerPlan = parsed
			}
		}
	}

	run, err := h.Manager.StartRun(c.UserContext(), runsession.StartRunInput{
		UserID:     userID,
		CapsuleID:  in.CapsuleID,
		PostID:     in.PostID,
		RunID:      in.RunID,
		ArtifactID: in.ArtifactID,
		Plan:       callerPlan,
	})
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(run)
}

// Complete handles POST /runs/complete.
func (h *RunHandler) Complete(p any, c *fiber.Ctx) error {
	in := p.(*CompleteRunInput)

	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	err = h.Manager.CompleteRun(c.UserContext(), runsession.CompleteRunInput{
		RunID:        in.RunID,
		UserID:       userID,
		CapsuleID:    in.CapsuleID,
		PostID:       in.PostID,
		DurationMs:   in.DurationMs,
		Status:       in.Status,
		ErrorMessage: in.ErrorMessage,
	})
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// AppendLogs handles POST /runs/:id/logs.
func (h *RunHandler) AppendLogs(p any, c *fiber.Ctx) error {
	in := p.(*AppendRunLogsInput)

	userID, err := userIDFromClaims(c)
	if err != nil {
		return nethttp.WithError(c, err)
	}

	var runID string
	if id, ok := c.Locals("id").(uuid.UUID); ok {
		runID = id.String()
	}

	entries := make([]runsession.LogEntry, 0, len(in.Logs))
	for _, l := range in.Logs {
		entries = append(entries, runsession.LogEntry{Level: l.Level, Message: l.Message, Source: l.Source})
	}

	if err := h.Manager.AppendRunLogs(c.UserContext(), runID, userID, entries); err != nil {
		return nethttp.WithError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
