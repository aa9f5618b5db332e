package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"moodwave/core/auth"
	"moodwave/logger"
	"moodwave/model"
	"moodwave/repository"

	"go.uber.org/zap"
)

type contextKey int

const userContextKey contextKey = iota

// UserFromContext returns the authenticated user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// requireUser returns the caller or errNotAuthenticated.
func requireUser(r *http.Request) (*model.User, error) {
	user := UserFromContext(r.Context())
	if user == nil {
		return nil, errNotAuthenticated
	}
	return user, nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
// ok is false when the header is absent or uses another scheme.
func bearerToken(r *http.Request) (token string, ok bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) == 0 || parts[0] != "Bearer" {
		return "", false
	}
	if len(parts) != 2 {
		return "", true
	}
	return parts[1], true
}

// authenticate resolves an optional bearer access token to a user.
// Requests without a bearer header pass through anonymously; a bearer
// header that does not resolve to an active user is rejected outright.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.userForAccessToken(r.Context(), raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	})
}

func (s *Server) userForAccessToken(ctx context.Context, raw string) (*model.User, error) {
	if raw == "" {
		return nil, detailError(http.StatusUnauthorized, "Invalid Authorization header. No credentials provided.")
	}
	claims, err := s.tokens.Parse(raw, auth.AccessToken)
	if err != nil {
		logger.Debug("rejected access token", logger.ErrorField(err))
		return nil, errBadBearerToken
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, errUserInactive
	}
	return user, nil
}

// allowedHosts rejects requests whose Host is not in ALLOWED_HOSTS.
func (s *Server) allowedHosts(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hostAllowed(r.Host, s.cfg.AllowedHosts) {
			logger.Warn("invalid Host header", logger.String("host", r.Host))
			writeError(w, r, errBadHost)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// hostAllowed matches host (port stripped) against patterns. A pattern is
// "*", an exact host, or ".example.com" for the domain and its subdomains.
func hostAllowed(host string, patterns []string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return false
	}

	for _, pattern := range patterns {
		pattern = strings.ToLower(pattern)
		switch {
		case pattern == "*":
			return true
		case strings.HasPrefix(pattern, "."):
			if host == pattern[1:] || strings.HasSuffix(host, pattern) {
				return true
			}
		case host == pattern:
			return true
		}
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(status int) {
	if rec.status == 0 {
		rec.status = status
	}
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		fields := []zap.Field{
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Int("bytes", rec.bytes),
			logger.Duration("duration", time.Since(start)),
			logger.String("remote", r.RemoteAddr),
		}
		if rec.status >= http.StatusInternalServerError {
			logger.Error("request", fields...)
		} else {
			logger.Info("request", fields...)
		}
	})
}

func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic while handling request",
					logger.String("path", r.URL.Path),
					logger.Any("panic", rec),
					logger.String("stack", string(debug.Stack())))
				writeJSON(w, http.StatusInternalServerError, errServer.Body)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
