package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/webots/supervisor/internal/authtoken"
	"github.com/webots/supervisor/internal/healthsrv"
	"github.com/webots/supervisor/internal/journal"
	"github.com/webots/supervisor/internal/logger"
	"github.com/webots/supervisor/internal/metrics"
	_ "github.com/webots/supervisor/internal/metrics/prometheus"
	"github.com/webots/supervisor/internal/telemetry"
	"github.com/webots/supervisor/pkg/config"
	"github.com/webots/supervisor/supervisor"
	"github.com/webots/supervisor/transport/tcp"
	"github.com/webots/supervisor/wire"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a long-lived supervisor process",
	Long: `serve dials the simulator once, then drives an Engine.Flush loop
at a fixed tick interval for the remainder of the process's life,
wiring every ambient concern SPEC_FULL.md names: structured logging,
OpenTelemetry tracing, Prometheus metrics, journal recording, and a
/healthz + /metrics HTTP endpoint. This is the "daemon" half of
supervisorctl; the other subcommands are one-shot calls against a
connection of their own.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to the configuration file (default: the XDG config location)")
}

// instrumentedTransport wraps a supervisor.Transport, recording each
// step's request/reply bytes to a journal and a trace span around the
// Flush round trip. Either of journal/metrics may be nil, in which
// case that concern is skipped — the same optional-collaborator
// pattern internal/metrics.StepMetrics documents.
type instrumentedTransport struct {
	supervisor.Transport
	j       *journal.Journal
	met     metrics.StepMetrics
	stepNum int64
}

func (t *instrumentedTransport) Flush(ctx context.Context) (*wire.Reader, error) {
	request := append([]byte(nil), t.Transport.Writer().Bytes()...)

	ctx, span := telemetry.StartStepSpan(ctx, t.stepNum)
	defer span.End()

	start := time.Now()
	r, err := t.Transport.Flush(ctx)
	duration := time.Since(start)

	if t.met != nil {
		t.met.RecordFlush(duration, err)
	}
	span.SetAttributes(telemetry.Status(statusCode(err)))
	if err != nil {
		span.SetAttributes(telemetry.StatusMsg(err.Error()))
		return r, err
	}

	if t.j != nil && r != nil {
		reply := append([]byte(nil), r.Rest()...)
		if jerr := t.j.Record(t.stepNum, request, reply); jerr != nil {
			logger.Warn("journal record failed", logger.Err(jerr))
		}
	}
	t.stepNum++
	return r, err
}

func statusCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

type quittingSource struct {
	mu sync.RWMutex
	e  *supervisor.Engine
}

func (s *quittingSource) IsQuitting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.e == nil {
		return false
	}
	return s.e.IsQuitting()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var shutdownTelemetry func(context.Context) error
	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err = telemetry.Init(ctx, telemetry.Config{
			Enabled:        cfg.Telemetry.Enabled,
			ServiceName:    "supervisorctl",
			ServiceVersion: Version,
			Endpoint:       cfg.Telemetry.Endpoint,
			Insecure:       cfg.Telemetry.Insecure,
			SampleRate:     cfg.Telemetry.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() { _ = shutdownTelemetry(context.Background()) }()
	}

	var stepMetrics metrics.StepMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		stepMetrics = metrics.NewStepMetrics()
	}

	var j *journal.Journal
	if cfg.Journal.Enabled {
		j, err = journal.Open(cfg.Journal.Path, cfg.Journal.RetainSteps)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
	}

	src := &quittingSource{}
	health := healthsrv.New(fmt.Sprintf(":%d", cfg.Metrics.Port), "supervisorctl", src)
	go func() {
		if err := health.ListenAndServe(); err != nil {
			logger.Warn("healthsrv stopped", logger.Err(err))
		}
	}()
	defer func() { _ = health.Shutdown(context.Background()) }()

	addr := fmt.Sprintf("%s:%d", cfg.Connection.Host, cfg.Connection.Port)
	dialCtx, cancel := context.WithTimeout(ctx, cfg.Connection.HandshakeTimeout)
	conn, err := tcp.Dial(dialCtx, addr)
	cancel()
	if err != nil {
		return fmt.Errorf("dial simulator at %s: %w", addr, err)
	}
	defer conn.Close()

	if cfg.Auth.Enabled {
		issuer := authtoken.NewIssuer([]byte(cfg.Auth.SigningSecret), cfg.Auth.Issuer, cfg.Auth.TokenTTL)
		if _, err := issuer.Issue("supervisorctl-serve"); err != nil {
			return fmt.Errorf("issue supervisor token: %w", err)
		}
	}

	transport := &instrumentedTransport{Transport: conn, j: j, met: stepMetrics}
	engine := supervisor.NewEngineWithLogging(transport)
	src.e = engine
	health.SetReady()

	logger.Info("supervisor serve started", logger.RemoteAddr(addr))

	ticker := time.NewTicker(cfg.Engine.FlushTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("supervisor serve shutting down")
			return nil
		case <-ticker.C:
			flushCtx, cancel := context.WithTimeout(ctx, cfg.Engine.FlushTimeout)
			err := engine.Flush(flushCtx, nil)
			cancel()
			if err != nil {
				logger.Error("flush failed", logger.Err(err))
				if engine.IsQuitting() {
					return nil
				}
				continue
			}
			if stepMetrics != nil {
				nodes, fields := engine.RegistrySizes()
				stepMetrics.RecordRegistrySize(nodes, fields)
			}
			if engine.IsQuitting() {
				logger.Info("simulator requested shutdown")
				return nil
			}
		}
	}
}
