package authorize

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"refsync/entity"
	"refsync/lib/api/cont"
	"refsync/lib/api/response"
	"refsync/lib/sl"
)

// Require gates a route group on a role capability. The authenticated
// user's stored role is normalized first, so legacy free-text role
// values keep working.
func Require(log *slog.Logger, allowed func(entity.Role) bool) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.authorize")

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			user := cont.GetUser(r.Context())
			role := user.NormalizedRole()
			if !allowed(role) {
				log.With(
					mod,
					slog.String("user", user.Email),
					slog.String("role", string(role)),
					slog.String("path", r.URL.Path),
				).Warn("access denied")
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("Insufficient role for this operation"))
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
