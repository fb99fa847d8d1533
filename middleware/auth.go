package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
)

type contextKey string

const ClerkIDKey contextKey = "clerkID"

// verifyToken returns the Clerk subject of a session token.
var verifyToken = func(ctx context.Context, token string) (string, error) {
	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{
		Token: token,
	})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ClerkAuthMiddleware validates Clerk JWT tokens and puts the subject in the context.
func ClerkAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Remove "Bearer " prefix
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
			return
		}

		subject, err := verifyToken(r.Context(), token)
		if err != nil {
			slog.Warn("token verification failed", "error", err)
			respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ClerkIDKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireModerator only lets through authenticated users on the allow-list.
// It must run after ClerkAuthMiddleware. An empty list denies everyone.
func RequireModerator(moderatorIDs []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(moderatorIDs))
	for _, id := range moderatorIDs {
		if id = strings.TrimSpace(id); id != "" {
			allowed[id] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clerkID, ok := GetClerkID(r.Context())
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if _, ok := allowed[clerkID]; !ok {
				slog.Warn("moderation attempt by non-moderator", "clerk_id", clerkID)
				respondWithError(w, http.StatusForbidden, "Moderator access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClerkID extracts Clerk user ID from context
func GetClerkID(ctx context.Context) (string, bool) {
	clerkID, ok := ctx.Value(ClerkIDKey).(string)
	return clerkID, ok && clerkID != ""
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
