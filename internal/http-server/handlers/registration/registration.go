package registration

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"refsync/entity"
	"refsync/impl/core"
	"refsync/lib/api/cont"
	"refsync/lib/api/response"
	"refsync/lib/sl"
)

type Core interface {
	ParseAndQueue(ctx context.Context, raw, createdBy string) (int, error)
	Registrations(ctx context.Context) ([]*entity.RegistrationRequest, error)
	ConfirmPayment(ctx context.Context, email string) error
	DeleteRegistration(ctx context.Context, email string) error
	ResetDraftQueue(ctx context.Context) (int64, error)
}

func Import(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.registration")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.ImportRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		user := cont.GetUser(r.Context())
		queued, err := handler.ParseAndQueue(r.Context(), req.RawText, user.Email)
		if err != nil {
			var dup *core.DuplicateEmailError
			if errors.As(err, &dup) {
				logger.Warn("import rejected", slog.String("email", dup.Email))
				render.Status(r, 409)
				render.JSON(w, r, response.Error(err.Error()))
				return
			}
			logger.Error("queue registrations", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Import: %v", err)))
			return
		}
		logger.Info("registrations queued", slog.Int("count", queued))

		render.JSON(w, r, response.Ok(map[string]int{"queued": queued}))
	}
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.registration")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		regs, err := handler.Registrations(r.Context())
		if err != nil {
			logger.Error("list registrations", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("List: %v", err)))
			return
		}
		logger.Debug("registrations listed", slog.Int("count", len(regs)))

		render.JSON(w, r, response.Ok(regs))
	}
}

// Export streams the queue as CSV in the same FIFO order the list
// endpoint uses.
func Export(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.registration")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		regs, err := handler.Registrations(r.Context())
		if err != nil {
			logger.Error("export registrations", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Export: %v", err)))
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="registrations.csv"`)

		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"email", "full_name", "whatsapp", "used_referral", "generated_code", "status", "created_at"})
		for _, reg := range regs {
			_ = cw.Write([]string{
				reg.Email,
				reg.FullName,
				reg.Whatsapp,
				reg.UsedReferralCode,
				reg.GeneratedReferralCode,
				string(reg.Status),
				reg.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			logger.Error("write csv", sl.Err(err))
			return
		}
		logger.Info("registrations exported", slog.Int("count", len(regs)))
	}
}

func Confirm(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.registration")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		email := strings.ToLower(chi.URLParam(r, "email"))
		if email == "" {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Email is required"))
			return
		}
		logger = logger.With(slog.String("email", email))

		if err := handler.ConfirmPayment(r.Context(), email); err != nil {
			logger.Error("confirm payment", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Confirm: %v", err)))
			return
		}
		logger.Info("payment confirmed")

		render.JSON(w, r, response.Ok(nil))
	}
}

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.registration")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		email := strings.ToLower(chi.URLParam(r, "email"))
		if email == "" {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Email is required"))
			return
		}
		logger = logger.With(slog.String("email", email))

		if err := handler.DeleteRegistration(r.Context(), email); err != nil {
			logger.Error("delete registration", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Delete: %v", err)))
			return
		}
		logger.Info("registration deleted")

		render.JSON(w, r, response.Ok(nil))
	}
}

func Reset(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.registration")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		deleted, err := handler.ResetDraftQueue(r.Context())
		if err != nil {
			logger.Error("reset queue", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Reset: %v", err)))
			return
		}
		logger.Info("queue reset", slog.Int64("deleted", deleted))

		render.JSON(w, r, response.Ok(map[string]int64{"deleted": deleted}))
	}
}
