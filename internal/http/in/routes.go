// Package in holds the inbound HTTP surface: route registration and the
// handlers backing it.
package in

import (
	"github.com/gofiber/fiber/v2"

	nethttp "github.com/Braden-sui/Vibecodr-sub002/pkg/net/http"

	"github.com/Braden-sui/Vibecodr-sub002/internal/config"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mopentelemetry"
)

// Dependencies bundles everything NewRouter needs to wire a route.
type Dependencies struct {
	Logger    mlog.Logger
	Telemetry *mopentelemetry.Telemetry
	Config    *config.Config
	Pingers   []func() error

	Proxy    *ProxyHandler
	Run      *RunHandler
	Feed     *FeedHandler
	Capsule  *CapsuleHandler
	Artifact *ArtifactHandler
	Social   *SocialHandler
	Recipe   *RecipeHandler
}

// NewRouter builds the fiber.App and registers every route: telemetry span
// first, then CORS, correlation id, access logging, and finally the
// per-route JWT guard.
func NewRouter(d Dependencies) *fiber.App {
	f := fiber.New(fiber.Config{DisableStartupMessage: true})

	tlMid := nethttp.NewTelemetryMiddleware(d.Telemetry)

	f.Use(tlMid.WithTelemetry())
	f.Use(nethttp.WithCORS())
	f.Use(nethttp.WithCorrelationID())
	f.Use(nethttp.WithHTTPLogging(d.Logger))

	jwt := nethttp.NewJWTMiddleware(nethttp.AuthVerifierConfig{
		Issuer:   d.Config.ClerkJWTIssuer,
		Audience: d.Config.ClerkAudiences(),
		JWKSURI:  d.Config.ClerkJWKSURI,
	})

	f.Get("/health", nethttp.Health)
	f.Get("/ready", nethttp.Ready(d.Pingers...))
	f.Get("/version", nethttp.Version(d.Config.Version))

	if d.Capsule != nil {
		f.Post("/capsules/publish", jwt.Protect(), nethttp.WithBody(new(PublishBundleInput), d.Capsule.PublishBundle))
		f.Post("/manifest/validate", d.Capsule.ValidateManifest)
		f.Post("/import/zip", jwt.Protect(), nethttp.WithBody(new(ImportZipInput), d.Capsule.ImportZip))
		f.Post("/import/github", jwt.Protect(), nethttp.WithBody(new(ImportGithubInput), d.Capsule.ImportGithub))
		f.Get("/capsules/:id", jwt.Protect(), nethttp.ParseUUIDPathParameters, d.Capsule.GetByID)
		f.Get("/capsules/:id/bundle", jwt.Protect(), nethttp.ParseUUIDPathParameters, d.Capsule.GetBundle)
		f.Get("/capsules/:id/manifest", jwt.Protect(), nethttp.ParseUUIDPathParameters, d.Capsule.GetManifest)
		f.Post("/capsules/:id/compile-draft", jwt.Protect(), nethttp.ParseUUIDPathParameters, d.Capsule.CompileDraft)
	}

	if d.Artifact != nil {
		f.Post("/compile", jwt.Protect(), nethttp.WithBody(new(CompileArtifactInput), d.Artifact.Compile))
		f.Get("/inspect", jwt.Protect(), d.Artifact.Inspect)
		f.Get("/artifacts/:id/manifest", d.Artifact.GetManifest)
		f.Get("/artifacts/:id/bundle", d.Artifact.GetBundle)
	}

	if d.Run != nil {
		f.Post("/runs/start", jwt.Protect(), nethttp.WithBody(new(StartRunInput), d.Run.Start))
		f.Post("/runs/complete", jwt.Protect(), nethttp.WithBody(new(CompleteRunInput), d.Run.Complete))
		f.Post("/runs/:id/logs", jwt.Protect(), nethttp.ParseUUIDPathParameters, nethttp.WithBody(new(AppendRunLogsInput), d.Run.AppendLogs))
	}

	if d.Proxy != nil {
		f.Get("/proxy", jwt.Protect(), d.Proxy.Forward)
	}

	if d.Feed != nil {
		f.Get("/posts", d.Feed.List)
	}

	if d.Social != nil {
		f.Post("/posts/:id/like", jwt.Protect(), nethttp.ParseUUIDPathParameters, d.Social.Like)
		f.Delete("/posts/:id/like", jwt.Protect(), nethttp.ParseUUIDPathParameters, d.Social.Unlike)
		f.Post("/users/:id/follow", jwt.Protect(), nethttp.ParseUUIDPathParameters, d.Social.Follow)
		f.Delete("/users/:id/follow", jwt.Protect(), nethttp.ParseUUIDPathParameters, d.Social.Unfollow)
		f.Post("/posts/:id/comments", jwt.Protect(), nethttp.ParseUUIDPathParameters, nethttp.WithBody(new(CommentInput), d.Social.Comment))
		f.Get("/posts/:id/comments", nethttp.ParseUUIDPathParameters, d.Social.ListComments)
		f.Delete("/comments/:id", jwt.Protect(), nethttp.ParseUUIDPathParameters, d.Social.DeleteComment)
		f.Get("/notifications", jwt.Protect(), d.Social.ListNotifications)
		f.Post("/notifications/mark-read", jwt.Protect(), nethttp.WithBody(new(MarkReadInput), d.Social.MarkReadBatch))
		f.Post("/notifications/:id/read", jwt.Protect(), nethttp.ParseUUIDPathParameters, d.Social.MarkRead)
		f.Get("/notifications/unread-count", jwt.Protect(), d.Social.UnreadCount)
		f.Post("/posts/:id/quarantine", jwt.Protect(), nethttp.ParseUUIDPathParameters, nethttp.WithBody(new(QuarantineInput), d.Social.Quarantine))
	}

	if d.Recipe != nil {
		f.Post("/capsules/:id/recipes", jwt.Protect(), nethttp.ParseUUIDPathParameters, nethttp.WithBody(new(CreateRecipeInput), d.Recipe.Create))
		f.Put("/recipes/:id", jwt.Protect(), nethttp.ParseUUIDPathParameters, nethttp.WithBody(new(UpdateRecipeInput), d.Recipe.Update))
		f.Get("/capsules/:id/recipes", nethttp.ParseUUIDPathParameters, d.Recipe.ListForCapsule)
	}

	f.Use(tlMid.EndTracingSpans)

	return f
}
