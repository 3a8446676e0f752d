package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Dosada05/esports-platform/models"
	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const actorContextKey contextKey = "actor"

var ErrNoActor = errors.New("authenticated user not found in context")

// Authenticator проверяет bearer-токен, выпущенный внешним сервисом авторизации.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Authenticate пропускает запрос дальше только с валидным токеном и кладёт models.Actor в контекст.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.actorFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func (a *Authenticator) actorFromRequest(r *http.Request) (models.Actor, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return models.Actor{}, errors.New("authorization header is required")
	}
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(tokenString) == "" {
		return models.Actor{}, errors.New("authorization header must be a bearer token")
	}

	token, err := jwt.Parse(strings.TrimSpace(tokenString), func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return models.Actor{}, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Actor{}, errors.New("invalid token claims")
	}
	return actorFromClaims(claims)
}

// RequireRoles пропускает пользователя, у которого есть хотя бы одна из ролей.
func RequireRoles(roles ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := ActorFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			for _, role := range roles {
				if actor.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient role for this action")
		})
	}
}

func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

func ActorFromContext(ctx context.Context) (models.Actor, error) {
	actor, ok := ctx.Value(actorContextKey).(models.Actor)
	if !ok {
		return models.Actor{}, ErrNoActor
	}
	return actor, nil
}
