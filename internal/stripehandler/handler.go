package stripehandler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
)

const eventCheckoutCompleted = "checkout.session.completed"

type Core interface {
	ConfirmPayment(ctx context.Context, email string) error
}

type Handler struct {
	core          Core
	webhookSecret string
	log           *slog.Logger
}

func New(core Core, whSecret string, logger *slog.Logger) *Handler {
	return &Handler{
		core:          core,
		webhookSecret: whSecret,
		log:           logger.With(slog.String("pkg", "stripehandler")),
	}
}

func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const tolerance = 5 * time.Minute
	h.log.With(
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	).Debug("received stripe webhook")

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.With(
			slog.Any("error", err),
		).Error("failed to read request body")
		http.Error(w, "read", http.StatusBadRequest)
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if !h.verifySignature(payload, sig, tolerance) {
		h.log.Error("invalid webhook signature")
		http.Error(w, "signature", http.StatusBadRequest)
		return
	}

	var evt stripe.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.log.With(
			slog.Any("error", err),
		).Error("unmarshal event")
		http.Error(w, "json", http.StatusBadRequest)
		return
	}

	log := h.log.With(
		slog.String("event_id", evt.ID),
		slog.Any("type", evt.Type),
	)

	switch evt.Type {
	case eventCheckoutCompleted:
		log.Info("handling checkout")
		h.handleCheckoutCompleted(r.Context(), &evt)
	default:
		log.Info("ignored event")
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) verifySignature(payload []byte, header string, tolerance time.Duration) bool {
	secret := h.webhookSecret
	parts := strings.Split(header, ",")
	var ts, sig string
	for _, p := range parts {
		if strings.HasPrefix(p, "t=") {
			ts = strings.TrimPrefix(p, "t=")
		}
		if strings.HasPrefix(p, "v1=") {
			sig = strings.TrimPrefix(p, "v1=")
		}
	}
	if ts == "" || sig == "" {
		h.log.Debug("missing timestamp or signature in header")
		return false
	}

	tsInt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		h.log.With(
			slog.Any("error", err),
		).Debug("failed to parse timestamp")
		return false
	}

	eventTime := time.Unix(tsInt, 0)
	timeSince := time.Since(eventTime)
	if timeSince > tolerance {
		h.log.With(
			slog.Time("timestamp", eventTime),
			slog.Duration("age", timeSince),
			slog.Duration("tolerance", tolerance),
		).Debug("webhook timestamp too old")
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	isValid := hmac.Equal([]byte(expected), []byte(sig))
	if !isValid {
		h.log.Debug("signature mismatch")
	}
	return isValid
}

// handleCheckoutCompleted marks the matching queued registration as
// paid. The registration email travels in the session's client
// reference id; older checkout links only carry the customer email.
func (h *Handler) handleCheckoutCompleted(ctx context.Context, evt *stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
		h.log.With(
			slog.Any("error", err),
		).Error("unmarshal checkout session")
		return
	}

	email := sess.ClientReferenceID
	if email == "" {
		email = sess.CustomerEmail
	}
	if email == "" {
		h.log.Warn("checkout session without reference email", slog.String("session_id", sess.ID))
		return
	}
	email = strings.ToLower(strings.TrimSpace(email))

	log := h.log.With(
		slog.String("session_id", sess.ID),
		slog.String("email", email),
		slog.Int64("amount", sess.AmountTotal),
	)

	if err := h.core.ConfirmPayment(ctx, email); err != nil {
		log.With(
			slog.Any("error", err),
		).Error("confirm payment")
		return
	}
	log.Info("registration marked as paid")
}
