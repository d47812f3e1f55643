// Command agent runs the Framecast local agent: it keeps a plan
// library, renders a live preview of the loaded plan, and exports
// deterministic videos over the local HTTP API.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/framecast/framecast-agent/internal/api"
	"github.com/framecast/framecast-agent/internal/capture"
	"github.com/framecast/framecast-agent/internal/config"
	"github.com/framecast/framecast-agent/internal/db"
	"github.com/framecast/framecast-agent/internal/exporter"
	"github.com/framecast/framecast-agent/internal/library"
	"github.com/framecast/framecast-agent/internal/logging"
	"github.com/framecast/framecast-agent/internal/plan"
	"github.com/framecast/framecast-agent/internal/planner"
	"github.com/framecast/framecast-agent/internal/preview"
	"github.com/framecast/framecast-agent/internal/render"
	"github.com/framecast/framecast-agent/internal/ui"
	"github.com/framecast/framecast-agent/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "agent: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting framecast agent",
		"version", config.Version,
		"port", cfg.Port(),
		"data_dir", logging.SanitizePath(cfg.DataDir()),
		"capture_mode", cfg.CaptureMode(),
	)

	for _, dir := range []string{cfg.DataDir(), cfg.ExportsDir(), cfg.PlansInboxDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	repo := library.NewRepository(database.Conn())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deviceID, err := ensureDeviceID(ctx, repo)
	if err != nil {
		return fmt.Errorf("ensure device id: %w", err)
	}
	token, err := ensureAuthToken(ctx, repo)
	if err != nil {
		return fmt.Errorf("ensure auth token: %w", err)
	}
	logger.Info("agent identity ready",
		"device_id", deviceID, "auth_token", logging.SanitizeToken(token))

	var plannerClient planner.Client
	plannerSource := library.PlanSourceLocal
	if cfg.PlannerBaseURL() != "" {
		plannerClient = planner.NewHTTPClient(cfg.PlannerBaseURL(), cfg.PlannerToken(), logger)
		plannerSource = library.PlanSourceRemote
	} else {
		plannerClient = planner.NewLocalClient(logger)
	}
	libSvc := library.NewService(repo, plannerClient, plannerSource, logger)

	surface := capture.NewSurface(cfg.CanvasWidth(), cfg.CanvasHeight())
	renderer := render.New(cfg.CanvasWidth(), cfg.CanvasHeight())
	detector := capture.NewDetector(cfg.CaptureMode(), logging.WithComponent(logger, "capture"))

	var tray *ui.Tray
	if !cfg.Headless() {
		tray = ui.NewTray(ui.TrayConfig{
			OnQuit: stop,
			Logger: logging.WithComponent(logger, "tray"),
		})
	}

	// The preview scheduler needs the controller as its export guard and
	// the controller resets the preview epoch when a session ends, so the
	// hook breaks the construction cycle.
	previewHook := &previewResetter{}

	controller := exporter.NewController(exporter.Config{
		Renderer:   renderer,
		Surface:    surface,
		Detector:   detector,
		ExportsDir: cfg.ExportsDir(),
		FPS:        cfg.FrameRate(),
		Preview:    previewHook,
		Logger:     logging.WithComponent(logger, "exporter"),
		OnUpdate: func(session exporter.Session) {
			persistSession(repo, logger, session)
			updateTray(tray, session)
		},
	})

	sched := preview.NewScheduler(renderer, surface, controller,
		logging.WithComponent(logger, "preview"))
	previewHook.sched = sched

	if record, p, err := libSvc.LatestPlan(ctx); err != nil {
		logger.Warn("failed to load latest plan", "error", err)
	} else if record != nil {
		sched.SetPlan(p)
		logger.Info("loaded latest plan into preview", "plan_id", record.ID)
	}
	go sched.Start(ctx)

	refreshPlanCount(ctx, repo, tray)

	inbox := watcher.NewInboxWatcher(cfg.PlansInboxDir(), libSvc,
		func(record *library.PlanRecord, p *plan.RenderPlan) {
			sched.SetPlan(p)
			refreshPlanCount(ctx, repo, tray)
		},
		logging.WithComponent(logger, "watcher"))
	go func() {
		if err := inbox.Run(ctx); err != nil {
			logger.Error("inbox watcher stopped", "error", err)
		}
	}()

	server := api.NewServer(api.ServerConfig{
		Port:         cfg.Port(),
		Library:      libSvc,
		Repository:   repo,
		Controller:   controller,
		Preview:      sched,
		Surface:      surface,
		Logger:       logging.WithComponent(logger, "api"),
		DeviceID:     deviceID,
		CaptureMode:  cfg.CaptureMode(),
		CanvasWidth:  cfg.CanvasWidth(),
		CanvasHeight: cfg.CanvasHeight(),
		FrameRate:    cfg.FrameRate(),
		TotalFrames:  plan.SegmentsPerVideo * exporter.FramesPerSegment(cfg.FrameRate()),
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	if tray != nil {
		// systray must own the main goroutine. A signal or server
		// failure tears the tray down so Run returns.
		go func() {
			select {
			case <-ctx.Done():
			case err := <-serverErr:
				if err != nil {
					logger.Error("api server failed", "error", err)
				}
				stop()
			}
			tray.Quit()
		}()
		tray.Run()
	} else {
		select {
		case <-ctx.Done():
		case err := <-serverErr:
			if err != nil {
				return err
			}
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	return nil
}

// previewResetter defers the scheduler reference until after the
// controller exists.
type previewResetter struct {
	sched *preview.Scheduler
}

func (p *previewResetter) ResetEpoch() {
	if p.sched != nil {
		p.sched.ResetEpoch()
	}
}

func persistSession(repo library.Repository, logger *slog.Logger, session exporter.Session) {
	row := &library.Export{
		ID:             session.ID,
		PlanID:         session.PlanID,
		Status:         string(session.Status),
		Strategy:       session.Strategy,
		Format:         session.Format.Name,
		FramesRendered: session.FramesRendered,
		TotalFrames:    session.TotalFrames,
		ArtifactPath:   session.ArtifactPath,
		Error:          session.Error,
		CreatedAt:      session.StartedAt,
		UpdatedAt:      time.Now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.SaveExport(ctx, row); err != nil {
		logger.Warn("failed to persist export state", "export_id", session.ID, "error", err)
	}
}

func updateTray(tray *ui.Tray, session exporter.Session) {
	if tray == nil {
		return
	}
	switch session.Status {
	case exporter.StatusCapturing, exporter.StatusFinalizing:
		tray.SetExporting(session.Progress())
	case exporter.StatusFailed:
		tray.SetFailed()
	default:
		tray.SetIdle()
	}
}

func refreshPlanCount(ctx context.Context, repo library.Repository, tray *ui.Tray) {
	if tray == nil {
		return
	}
	if count, err := repo.CountPlans(ctx); err == nil {
		tray.SetPlansCount(count)
	}
}

func ensureDeviceID(ctx context.Context, repo library.Repository) (string, error) {
	id, err := repo.GetConfig(ctx, "device_id")
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := repo.SetConfig(ctx, "device_id", id); err != nil {
		return "", err
	}
	return id, nil
}

func ensureAuthToken(ctx context.Context, repo library.Repository) (string, error) {
	token, err := repo.GetConfig(ctx, "auth_token")
	if err != nil {
		return "", err
	}
	if token != "" {
		return token, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token = hex.EncodeToString(buf)
	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}
	return token, nil
}
