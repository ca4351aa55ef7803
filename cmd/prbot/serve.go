package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tubbz-alt/skara/internal/transport/http/api"
	"github.com/Tubbz-alt/skara/internal/transport/http/middleware"
	"github.com/Tubbz-alt/skara/internal/transport/http/server/handlers-fiber"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"
)

// Fetches and pushes of large repositories take a while; beyond this a
// request is worth a warning.
const slowRequest = 2 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept commands over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	serv := fiber.New(fiber.Config{
		ReadTimeout:  a.cfg.HTTP.RequestTimeout,
		WriteTimeout: a.cfg.HTTP.RequestTimeout,
	})
	serv.Use(recover.New())
	serv.Use(requestid.New())
	serv.Use(middleware.RequestLogger(a.log, slowRequest))

	serv.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	h := handlers_fiber.NewHandler(a.log, a.uc)
	api.RegisterHandlers(serv, h)

	go func() {
		if err := serv.Listen(a.cfg.ServerAddr()); err != nil {
			a.log.Errorw("failed to start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = serv.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		a.log.Warnw("server shutdown timeout", "timeout", a.cfg.Server.ShutdownTimeout)
	}
	return nil
}
