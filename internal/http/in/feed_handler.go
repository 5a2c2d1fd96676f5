package in

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Braden-sui/Vibecodr-sub002/internal/service/feed"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
	nethttp "github.com/Braden-sui/Vibecodr-sub002/pkg/net/http"
)

// FeedHandler serves the feed route, backed by feed.Lister.
type FeedHandler struct {
	Lister *feed.Lister
}

// List handles GET /posts?mode=&limit=&offset=&tags=&q=&userId=.
// Authentication is optional: an anonymous caller gets latest/tags/foryou
// without viewer personalization; following requires a verified caller.
func (h *FeedHandler) List(c *fiber.Ctx) error {
	limit, offset, ok := nethttp.PageParams(c.Query("limit"), c.Query("offset"))
	if !ok {
		return nethttp.WithError(c, apperr.ValidationError{EntityType: "feed", Code: "invalid_pagination", Message: "limit/offset must be non-negative integers"})
	}

	mode := feed.Mode(c.Query("mode", string(feed.ModeLatest)))

	var viewerID string
	if claims, err := nethttp.ClaimsFromContext(c); err == nil && claims != nil {
		viewerID = claims.Subject
	}

	views, err := h.Lister.List(c.UserContext(), feed.ListInput{
		Mode:     mode,
		ViewerID: viewerID,
		AuthorID: c.Query("userId"),
		Tag:      c.Query("tags"),
		Query:    c.Query("q"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nethttp.WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"posts": views})
}
