package system

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/seicologia/agenda/internal/cli"
	apperrors "github.com/seicologia/agenda/internal/errors"
	"github.com/seicologia/agenda/internal/instance"
	"github.com/seicologia/agenda/internal/logger"
	"github.com/seicologia/agenda/internal/persist"
	"github.com/seicologia/agenda/internal/server"
)

type ServeCmd struct {
	Addr string `help:"Listen address." default:"127.0.0.1:8080" env:"AGENDA_ADDR"`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if ctx.Metrics == nil {
		ctx.Metrics = persist.NewMetrics(reg)
	}

	_, portStr, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid listen port %q: %w", portStr, err)
	}

	lock, err := instance.Acquire(ctx.LockPath(), port)
	if err != nil {
		return apperrors.WithHint(err, "stop the other server or point --config at another workspace")
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("Failed to release server lock", "error", err)
		}
	}()

	ctx.Serving = true
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	ctx.PerformAutomaticBackup()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{Addr: c.Addr, Workspace: ws, Registry: reg})
	fmt.Fprintf(ctx.Out(), "Serving agenda on http://%s (Ctrl+C to stop)\n", c.Addr)
	logger.Info("Server starting", "addr", c.Addr, "store", ctx.Store.GetConfigPath())
	return srv.Run(sigCtx)
}
