package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/medme/secwatch/internal/domain/model"
	"github.com/medme/secwatch/pkg/apierror"
)

const RequestIDHeader = "X-Request-ID"

type actorKey struct{}

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Identify builds the request's model.Actor once: request ID, client IP, user agent
// and, when a bearer token is present, the verified subject and role. A malformed
// or invalid token is rejected rather than downgraded to anonymous.
func Identify(verifier *TokenVerifier, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if !validRequestID.MatchString(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			actor := model.Anonymous(reqID, ClientIP(r, trustProxy), r.UserAgent())

			token, present, err := bearerToken(r)
			if present {
				if err != nil {
					apierror.Write(w, apierror.Unauthorized(err.Error()))
					return
				}
				if verifier == nil {
					apierror.Write(w, apierror.Unauthorized("bearer tokens are not accepted"))
					return
				}
				claims, err := verifier.Verify(token)
				if err != nil {
					apierror.Write(w, apierror.Unauthorized("invalid bearer token"))
					return
				}
				actor.ID = claims.Subject
				actor.Role = model.ParseRole(claims.Role)
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by Identify, or an anonymous actor.
func ActorFrom(ctx context.Context) model.Actor {
	if a, ok := ctx.Value(actorKey{}).(model.Actor); ok {
		return a
	}
	return model.Actor{}
}

// RequireCapability rejects anonymous callers with 401 and callers whose role lacks
// c with 403.
func RequireCapability(c model.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFrom(r.Context())
			if !actor.Authenticated() {
				apierror.Write(w, apierror.Unauthorized("authentication required"))
				return
			}
			if !actor.Can(c) {
				apierror.Write(w, apierror.Forbidden("missing capability "+string(c)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
