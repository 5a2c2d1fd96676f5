package http

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/Braden-sui/Vibecodr-sub002/pkg/apperr"
	"github.com/Braden-sui/Vibecodr-sub002/pkg/mlog"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

const jwkDefaultDuration = time.Hour * 1

// TokenContextValue is the c.Locals key under which the verified claims are
// stashed for downstream handlers.
type TokenContextValue string

const tokenLocalsKey = TokenContextValue("claims")

// Claims is the subset of the bearer token's claims the control plane reads.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	AuthorizedParty string
	Raw       jwt.MapClaims
}

// ClaimsFromContext extracts the verified Claims stashed by Protect.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, error) {
	if v := c.Locals(string(tokenLocalsKey)); v != nil {
		if claims, ok := v.(*Claims); ok {
			return claims, nil
		}
	}

	return nil, errors.New("no verified token in request context")
}

func getTokenHeader(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)

	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}

	return ""
}

// JWKProvider fetches and caches a JSON Web Key Set (RFC 7517) used to verify
// RS256-signed bearer tokens.
type JWKProvider struct {
	URI           string
	CacheDuration time.Duration
	cache         *cache.Cache
	once          sync.Once
}

// Fetch returns the cached key set, refreshing it from URI on a cache miss.
//
//nolint:ireturn
func (p *JWKProvider) Fetch(ctx context.Context) (jwk.Set, error) {
	p.once.Do(func() {
		p.cache = cache.New(p.CacheDuration, p.CacheDuration)
	})

	if set, found := p.cache.Get(p.URI); found {
		return set.(jwk.Set), nil
	}

	set, err := jwk.Fetch(ctx, p.URI)
	if err != nil {
		return nil, err
	}

	p.cache.Set(p.URI, set, p.CacheDuration)

	return set, nil
}

// AuthVerifierConfig configures JWTMiddleware: the expected issuer, the
// allowed audience values,
// and the JWKS endpoint to verify signatures against.
type AuthVerifierConfig struct {
	Issuer   string
	Audience []string
	JWKSURI  string
}

// JWTMiddleware protects endpoints using RS256 bearer tokens verified
// against a rotating JWKS: it checks signature, iss, aud, azp (when the
// token carries more than one audience), and the exp/nbf time claims.
type JWTMiddleware struct {
	issuer   string
	audience map[string]bool
	jwk      *JWKProvider
}

// NewJWTMiddleware builds a JWTMiddleware from cfg, caching JWKS for one hour.
func NewJWTMiddleware(cfg AuthVerifierConfig) *JWTMiddleware {
	audience := make(map[string]bool, len(cfg.Audience))
	for _, a := range cfg.Audience {
		audience[strings.TrimSpace(a)] = true
	}

	return &JWTMiddleware{
		issuer:   cfg.Issuer,
		audience: audience,
		jwk: &JWKProvider{
			URI:           cfg.JWKSURI,
			CacheDuration: jwkDefaultDuration,
		},
	}
}

// Protect verifies the bearer token on every request it wraps.
func (m *JWTMiddleware) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := mlog.NewLoggerFromContext(c.UserContext())

		tokenString := getTokenHeader(c)
		if tokenString == "" {
			return WithError(c, apperr.UnauthorizedError{Code: "missing_token", Message: "a bearer token is required"})
		}

		keySet, err := m.jwk.Fetch(c.UserContext())
		if err != nil {
			l.Errorf("failed to load JWKS from %s: %v", m.jwk.URI, err)
			return WithError(c, apperr.InternalError{Code: "jwks_unavailable", Message: "could not load signing keys"})
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}

			kid, ok := token.Header["kid"].(string)
			if !ok {
				return nil, errors.New("kid header not found")
			}

			key, found := keySet.LookupKeyID(kid)
			if !found {
				return nil, errors.New("kid not present in JWKS")
			}

			var raw any
			if err := key.Raw(&raw); err != nil {
				return nil, err
			}

			return raw, nil
		}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			l.Debugf("token rejected: %v", err)
			return WithError(c, apperr.UnauthorizedError{Code: "invalid_token", Message: "the token is invalid or expired"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return WithError(c, apperr.UnauthorizedError{Code: "invalid_token", Message: "token claims could not be parsed"})
		}

		parsed, err := m.verifyAudienceAndParty(claims)
		if err != nil {
			l.Debugf("token rejected: %v", err)
			return WithError(c, apperr.UnauthorizedError{Code: "invalid_token", Message: err.Error()})
		}

		c.Locals(string(tokenLocalsKey), parsed)

		return c.Next()
	}
}

// verifyAudienceAndParty enforces aud membership and, when a token carries
// more than one audience, requires azp to disambiguate which party it was
// issued for.
func (m *JWTMiddleware) verifyAudienceAndParty(claims jwt.MapClaims) (*Claims, error) {
	aud, err := claims.GetAudience()
	if err != nil {
		return nil, fmt.Errorf("missing aud claim: %w", err)
	}

	matched := false

	for _, a := range aud {
		if m.audience[a] {
			matched = true
			break
		}
	}

	if !matched {
		return nil, errors.New("token audience not accepted")
	}

	azp, _ := claims["azp"].(string)
	if len(aud) > 1 && azp == "" {
		return nil, errors.New("multi-audience token missing azp")
	}

	sub, _ := claims.GetSubject()
	iss, _ := claims.GetIssuer()

	return &Claims{
		Subject:         sub,
		Issuer:          iss,
		Audience:        aud,
		AuthorizedParty: azp,
		Raw:             claims,
	}, nil
}
