package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/tryon/internal/app"
	"github.com/ayusman/tryon/internal/capture"
	"github.com/ayusman/tryon/internal/config"
	"github.com/ayusman/tryon/internal/detector"
	"github.com/ayusman/tryon/internal/jewelry"
	"github.com/ayusman/tryon/internal/server"
	"github.com/ayusman/tryon/internal/store"
	"github.com/ayusman/tryon/internal/tray"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the try-on server",
	Long: `Start the try-on web server. The camera and the landmark model are only
started once the try-on view is switched on, from the browser or the tray.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Address to listen on (overrides config)")
	serveCmd.Flags().Bool("tray", false, "Show a system tray toggle")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if useTray, _ := cmd.Flags().GetBool("tray"); useTray {
		cfg.Server.Tray = true
	}

	loader, err := jewelry.NewLoader(st.Jewelry(), jewelry.LoaderConfig{
		BaseDir:      cfg.Data.MediaDir,
		MaxDimension: cfg.Assets.MaxDimension,
		CacheSize:    cfg.Assets.CacheSize,
	})
	if err != nil {
		return err
	}

	engine := newEngine(cfg)
	defer engine.Close()

	if err := applyCalibrations(st, engine); err != nil {
		return err
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.Data.Dir)
	}
	if staticDir != "" {
		fmt.Printf("Serving static files from: %s\n", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir:      staticDir,
		Store:          st,
		Engine:         engine,
		Loader:         loader,
		StreamInterval: time.Duration(cfg.Render.StreamIntervalMS) * time.Millisecond,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(cfg.Server.Addr)
	}()

	if cfg.Server.Tray {
		runTray(ctx, stop, engine, cfg.Server.Addr)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newEngine(cfg *config.Config) *app.App {
	camera := capture.NewCamera(cfg.Camera.DeviceID)
	camera.SetFPS(cfg.Camera.FPS)

	detectorConfig := detector.DefaultConfig()
	detectorConfig.PythonPath = cfg.Detector.PythonPath
	detectorConfig.ScriptPath = cfg.Detector.ScriptPath
	detectorConfig.MaxHands = cfg.Detector.MaxHands
	detectorConfig.MinConfidence = cfg.Detector.MinConfidence
	detectorConfig.MinTrackingConf = cfg.Detector.MinTrackingConf

	return app.New(app.Config{
		Camera:          camera,
		Factory:         detector.MediaPipeFactory(detectorConfig),
		FrameInterval:   time.Duration(cfg.Render.FrameIntervalMS) * time.Millisecond,
		MaxReadFailures: cfg.Camera.MaxReadFailures,
	})
}

// applyCalibrations loads stored anchor calibrations into the engine.
func applyCalibrations(st *store.Store, engine *app.App) error {
	calibrations, err := st.Calibrations().List()
	if err != nil {
		return fmt.Errorf("failed to load calibrations: %w", err)
	}
	for _, c := range calibrations {
		if err := engine.Calibrate(c.Category, c.Scale, c.OffsetX, c.OffsetY); err != nil {
			log.Printf("Skipping calibration for %s: %v", c.Category, err)
		}
	}
	return nil
}

// runTray blocks on the system tray until it quits or ctx is cancelled.
func runTray(ctx context.Context, quit func(), engine *app.App, addr string) {
	t := tray.New()
	t.OnToggle(engine.SetActive)
	t.OnOpen(func() { openBrowser(localURL(addr)) })
	t.OnQuit(quit)

	cancel := engine.OnChange(func(s app.State) {
		t.SetActive(s.Active)
		t.SetStatus(s.Status)
	})
	defer cancel()

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
	quit()
}

func localURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Error opening browser: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
