package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"refsync/internal/config"
	"refsync/internal/http-server/handlers/errors"
	"refsync/internal/http-server/handlers/registration"
	"refsync/internal/http-server/handlers/reward"
	"refsync/internal/stripehandler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"refsync/entity"
	"refsync/internal/http-server/middleware/authenticate"
	"refsync/internal/http-server/middleware/authorize"
	"refsync/internal/http-server/middleware/timeout"
	"refsync/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	registration.Core
	reward.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler, webhook *stripehandler.Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(5))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Use(authenticate.New(log, handler))
		rootApi.Route("/registrations", func(reg chi.Router) {
			reg.Use(authorize.Require(log, entity.Role.CanManageReferrals))
			reg.Post("/", registration.Import(log, handler))
			reg.Get("/", registration.List(log, handler))
			reg.Get("/export", registration.Export(log, handler))
			reg.Post("/{email}/confirm", registration.Confirm(log, handler))
			reg.Delete("/{email}", registration.Delete(log, handler))
			reg.Post("/reset", registration.Reset(log, handler))
		})
		rootApi.Route("/rewards", func(rw chi.Router) {
			rw.Use(authorize.Require(log, entity.Role.CanManageRewards))
			rw.Get("/incoming", reward.Incoming(log, handler))
			rw.Post("/calculations", reward.BulkCalculate(log, handler))
			rw.Post("/calculations/{email}", reward.Calculate(log, handler))
			rw.Get("/queue", reward.Queue(log, handler))
			rw.Post("/payouts", reward.BulkPayout(log, handler))
			rw.Post("/payouts/{id}", reward.Payout(log, handler))
			rw.Get("/history", reward.History(log, handler))
			rw.Get("/history/export", reward.ExportHistory(log, handler))
			rw.Delete("/history", reward.ResetHistory(log, handler))
			rw.Post("/achievements", reward.Achievement(log, handler))
			rw.Get("/price", reward.GetPrice(log, handler))
			rw.Put("/price", reward.SetPrice(log, handler))
		})
	})
	if webhook != nil {
		router.Route("/webhook", func(rootWH chi.Router) {
			rootWH.Post("/stripe", webhook.HandleWebhook)
		})
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
