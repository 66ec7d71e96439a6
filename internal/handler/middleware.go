package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/novameet/meeting-agent-service/internal/domain"
	"github.com/novameet/meeting-agent-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type contextKey string

const authUserKey contextKey = "auth_user"

// AuthUserFromContext returns the authenticated user attached by
// SessionMiddleware.
func AuthUserFromContext(ctx context.Context) (domain.AuthUser, bool) {
	user, ok := ctx.Value(authUserKey).(domain.AuthUser)
	return user, ok
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs HTTP requests.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		logger.Base().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.RequestURI),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

// CORSMiddleware adds CORS headers to all requests.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SessionMiddleware validates the identity provider's session token and
// attaches the resolved user to the request context. Every core operation
// is scoped to this identity; requests without a valid session never reach
// domain logic.
func SessionMiddleware(sessionSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			raw = strings.TrimPrefix(raw, "Bearer ")
			if raw == "" {
				writeErrorMessage(w, http.StatusUnauthorized, "missing session token")
				return
			}

			token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(sessionSecret), nil
			})
			if err != nil || !token.Valid {
				logger.Base().Warn("invalid session token",
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err))
				writeErrorMessage(w, http.StatusUnauthorized, "invalid session token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeErrorMessage(w, http.StatusUnauthorized, "invalid session claims")
				return
			}

			userID, _ := claims["sub"].(string)
			if userID == "" {
				writeErrorMessage(w, http.StatusUnauthorized, "session token has no subject")
				return
			}

			user := domain.AuthUser{ID: userID}
			user.Name, _ = claims["name"].(string)
			user.Email, _ = claims["email"].(string)
			user.Image, _ = claims["image"].(string)

			ctx := context.WithValue(r.Context(), authUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware applies a per-user token bucket to the authenticated
// API. The webhook path is exempt: the provider's retry semantics must not
// collide with local throttling.
func RateLimitMiddleware(limit float64, burst int) func(http.Handler) http.Handler {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters[key]; ok {
			return l
		}
		l := rate.NewLimiter(rate.Limit(limit), burst)
		limiters[key] = l
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if user, ok := AuthUserFromContext(r.Context()); ok {
				key = user.ID
			}
			if !limiterFor(key).Allow() {
				writeErrorMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
