package reward

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"refsync/entity"
	"refsync/lib/api/cont"
	"refsync/lib/api/response"
	"refsync/lib/sl"
)

type Core interface {
	IncomingRegistrations(ctx context.Context) ([]*entity.RegistrationRequest, error)
	CalculateReward(ctx context.Context, email string) ([]*entity.RewardCalculation, error)
	BulkCalculate(ctx context.Context, ids []string) (*entity.BulkResult, error)
	PayoutQueue(ctx context.Context, typ entity.RewardType) ([]*entity.RewardCalculation, error)
	Payout(ctx context.Context, id string) error
	BulkPayout(ctx context.Context, ids []string, typ entity.RewardType) (*entity.BulkResult, error)
	History(ctx context.Context) ([]*entity.RewardCalculation, error)
	ResetHistory(ctx context.Context) (int64, error)
	SendAchievement(ctx context.Context, in *entity.AchievementInput) (*entity.RewardCalculation, error)
	BasePrice(ctx context.Context) (*entity.PriceConfig, error)
	SetBasePrice(ctx context.Context, amount int64, updatedBy string) (*entity.PriceConfig, error)
}

func Incoming(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.reward")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		regs, err := handler.IncomingRegistrations(r.Context())
		if err != nil {
			logger.Error("list incoming", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Incoming: %v", err)))
			return
		}
		logger.Debug("incoming listed", slog.Int("count", len(regs)))

		render.JSON(w, r, response.Ok(regs))
	}
}

func Calculate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.reward")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		email := chi.URLParam(r, "email")
		if email == "" {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Email is required"))
			return
		}
		logger = logger.With(slog.String("email", email))

		entries, err := handler.CalculateReward(r.Context(), email)
		if err != nil {
			logger.Error("calculate reward", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Calculate: %v", err)))
			return
		}
		logger.Info("reward calculated", slog.Int("entries", len(entries)))

		render.JSON(w, r, response.Ok(entries))
	}
}

func BulkCalculate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.reward")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.BulkRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		result, err := handler.BulkCalculate(r.Context(), req.IDs)
		if err != nil {
			logger.Error("bulk calculate", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Bulk calculate: %v", err)))
			return
		}
		logger.Info("bulk calculate finished",
			slog.Int("succeeded", result.Succeeded), slog.Int("failed", len(result.Failed)))

		render.JSON(w, r, response.Ok(result))
	}
}

func Queue(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.reward")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		typ := entity.RewardType(r.URL.Query().Get("type"))
		calcs, err := handler.PayoutQueue(r.Context(), typ)
		if err != nil {
			logger.Error("payout queue", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Queue: %v", err)))
			return
		}
		logger.Debug("payout queue listed", slog.Int("count", len(calcs)))

		render.JSON(w, r, response.Ok(calcs))
	}
}

func Payout(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.reward")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Calculation id is required"))
			return
		}
		logger = logger.With(slog.String("id", id))

		if err := handler.Payout(r.Context(), id); err != nil {
			if errors.Is(err, entity.ErrAlreadySent) {
				logger.Warn("payout already settled")
				render.Status(r, 409)
				render.JSON(w, r, response.Error("Calculation already sent"))
				return
			}
			logger.Error("payout", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Payout: %v", err)))
			return
		}
		logger.Info("payout settled")

		render.JSON(w, r, response.Ok(nil))
	}
}

func BulkPayout(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.reward")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.BulkRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		typ := entity.RewardType(r.URL.Query().Get("type"))
		result, err := handler.BulkPayout(r.Context(), req.IDs, typ)
		if err != nil {
			logger.Error("bulk payout", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Bulk payout: %v", err)))
			return
		}
		logger.Info("bulk payout finished",
			slog.Int("succeeded", result.Succeeded), slog.Int("failed", len(result.Failed)))

		render.JSON(w, r, response.Ok(result))
	}
}

func History(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.reward")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		calcs, err := handler.History(r.Context())
		if err != nil {
			logger.Error("history", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("History: %v", err)))
			return
		}
		logger.Debug("history listed", slog.Int("count", len(calcs)))

		render.JSON(w, r, response.Ok(calcs))
	}
}

func ExportHistory(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.reward")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		calcs, err := handler.History(r.Context())
		if err != nil {
			logger.Error("export history", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Export: %v", err)))
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="reward_history.csv"`)

		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"id", "type", "target_email", "target_name", "tier", "percentage", "base", "amount", "sent_at"})
		for _, calc := range calcs {
			sentAt := ""
			if calc.SentAt != nil {
				sentAt = calc.SentAt.Format("2006-01-02 15:04:05")
			}
			_ = cw.Write([]string{
				calc.ID,
				string(calc.Type),
				calc.TargetEmail,
				calc.TargetName,
				string(calc.Tier),
				strconv.FormatFloat(calc.Percentage, 'f', 2, 64),
				strconv.FormatInt(calc.TransactionBase, 10),
				strconv.FormatInt(calc.BonusAmount, 10),
				sentAt,
			})
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			logger.Error("write csv", sl.Err(err))
			return
		}
		logger.Info("history exported", slog.Int("count", len(calcs)))
	}
}

func ResetHistory(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.reward")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		deleted, err := handler.ResetHistory(r.Context())
		if err != nil {
			logger.Error("reset history", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Reset: %v", err)))
			return
		}
		logger.Info("history reset", slog.Int64("deleted", deleted))

		render.JSON(w, r, response.Ok(map[string]int64{"deleted": deleted}))
	}
}

func Achievement(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.reward")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.AchievementInput
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			slog.String("email", req.Email),
			slog.Int64("amount", req.Amount),
		)

		calc, err := handler.SendAchievement(r.Context(), &req)
		if err != nil {
			logger.Error("send achievement", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Achievement: %v", err)))
			return
		}
		logger.Info("achievement sent")

		render.JSON(w, r, response.Ok(calc))
	}
}

func GetPrice(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.reward")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		price, err := handler.BasePrice(r.Context())
		if err != nil {
			logger.Error("get base price", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Price: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(price))
	}
}

func SetPrice(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.reward")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.PriceConfig
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		user := cont.GetUser(r.Context())
		price, err := handler.SetBasePrice(r.Context(), req.Amount, user.Email)
		if err != nil {
			logger.Error("set base price", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Price: %v", err)))
			return
		}
		logger.Info("base price updated", slog.Int64("amount", price.Amount))

		render.JSON(w, r, response.Ok(price))
	}
}
