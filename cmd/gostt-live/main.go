package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chaz8081/gostt-live/internal/audio"
	"github.com/chaz8081/gostt-live/internal/config"
	"github.com/chaz8081/gostt-live/internal/hotkey"
	"github.com/chaz8081/gostt-live/internal/inject"
	"github.com/chaz8081/gostt-live/internal/models"
	"github.com/chaz8081/gostt-live/internal/permission"
	"github.com/chaz8081/gostt-live/internal/recognize"
	"github.com/chaz8081/gostt-live/internal/session"
	"github.com/chaz8081/gostt-live/internal/telemetry"
	"github.com/chaz8081/gostt-live/internal/ui"
)

var version = "dev"

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/gostt-live/config.yaml)")
	input := flag.String("input", "", "recognize a WAV file instead of the microphone")
	reference := flag.String("reference", "", "with -input, expected transcript to score the result against")
	downloadModel := flag.Bool("download-model", false, "download the whisper model named by model_path and exit")
	initConfig := flag.Bool("init-config", false, "write the default config file and exit")
	flag.Parse()

	bootLog := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			fatal(bootLog, "writing default config", err)
		}
		fmt.Printf("Config: %s\n", path)
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath, bootLog)
	if err != nil {
		fatal(bootLog, "config", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal(bootLog, "config validation", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *downloadModel {
		size, ok := models.SizeFromPath(cfg.ModelPath)
		if !ok {
			fatal(logger, "model download", fmt.Errorf("model_path %s does not name a known whisper model", cfg.ModelPath))
		}
		if _, err := models.NewDownloader().Download(ctx, size, filepath.Dir(cfg.ModelPath)); err != nil {
			fatal(logger, "model download", err)
		}
		return
	}

	lang, err := recognize.LanguageCode(cfg.Locale)
	if err != nil {
		fatal(logger, "locale", err)
	}

	printBanner(cfg, lang, *input)

	tel, err := telemetry.Setup(ctx, "gostt-live", version, logger)
	if err != nil {
		fatal(logger, "telemetry", err)
	}
	if cfg.MetricsAddr != "" {
		go func() {
			if err := tel.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	// A missing model leaves the recognizers unavailable; sessions are then
	// refused at authorization, as with a device that has no speech support.
	var tr recognize.Transcriber
	logger.Info("loading whisper model", "path", cfg.ModelPath, "language", lang)
	modelStart := time.Now()
	if wt, err := recognize.NewWhisperTranscriber(cfg.ModelPath, lang); err != nil {
		logger.Error("whisper model unavailable; run with -download-model", "error", err)
	} else {
		tr = wt
		logger.Info("model loaded", "elapsed", time.Since(modelStart).Round(time.Millisecond))
	}

	injector, err := inject.New(cfg.Inject.Method)
	if err != nil {
		fatal(logger, "inject", err)
	}

	audioSession := audio.NewSession()
	var (
		capture   session.CaptureDevice
		fileInput *audio.FileInput
		devices   = audio.CaptureDevices
	)
	if *input != "" {
		fileInput = audio.NewFileInput(*input, cfg.Audio.SampleRate, cfg.Audio.Channels)
		capture = fileInput
		devices = func() ([]string, error) { return []string{*input}, nil }
	} else {
		capture = audio.NewEngine(audioSession, cfg.Audio.SampleRate, cfg.Audio.Channels)
	}

	queue := ui.NewMainQueue(256)
	opts := recognizerOptions(cfg, lang)
	transcripts := make(map[string]*ui.Transcript)
	var coordinators []*session.Coordinator
	for _, engine := range []string{recognize.EngineAnalyzer, recognize.EngineLegacy} {
		rec, err := recognize.New(engine, tr, opts)
		if err != nil {
			fatal(logger, "recognizer", err)
		}
		transcript := ui.NewTranscript(queue, engine)
		transcripts[engine] = transcript
		coordinators = append(coordinators, session.New(
			permission.New(rec.Available, devices, logger),
			audioSession,
			capture,
			rec,
			transcript,
			session.Options{
				Engine:        engine,
				TapBufferSize: cfg.Audio.TapBufferSize,
				QueueSize:     cfg.Audio.QueueSize,
				Logger:        logger,
				OnFinal:       deliver(injector, logger),
			},
		))
	}

	selector, err := session.NewSelector(cfg.Engine, coordinators...)
	if err != nil {
		fatal(logger, "engine", err)
	}

	display := ui.NewDisplay(os.Stdout, selector.Selected)
	done := make(chan struct{})
	for _, transcript := range transcripts {
		ch, cancel := transcript.Subscribe()
		defer cancel()
		go display.Watch(ch, done)
	}

	shutdown := func() {
		selector.StopAll()
		close(done)
		queue.Close()
		if tr != nil {
			tr.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}

	if fileInput != nil {
		recognizeFile(ctx, selector.Current(), fileInput, logger)
		if *reference != "" {
			text := selector.Current().Session().RecognizedText
			rate := recognize.CompareTranscripts(*reference, text, lang)
			fmt.Printf("Error rate: %.1f%% (%d subs, %d ins, %d dels of %d)\n",
				rate.Rate*100, rate.Substitutions, rate.Insertions, rate.Deletions, rate.RefUnits)
		}
		shutdown()
		return
	}

	listener := hotkey.NewListener(cfg.Hotkey.Keys, cfg.Hotkey.SwitchKeys, cfg.Hotkey.Mode)
	go listener.Start()

	logger.Info("ready",
		"record", hotkey.Describe(cfg.Hotkey.Keys),
		"switch", hotkey.Describe(cfg.Hotkey.SwitchKeys),
		"mode", cfg.Hotkey.Mode,
		"engine", selector.Selected())

	// Main event loop
	events := listener.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				logger.Info("hotkey listener stopped")
				shutdown()
				return
			}

			switch ev.Type {
			case hotkey.EventToggle:
				// Start blocks until audio streams; keep the loop free for a
				// second press that cancels it.
				go func() { logStartError(logger, selector.Toggle(ctx)) }()
			case hotkey.EventStart:
				go func() { logStartError(logger, selector.Current().Start(ctx)) }()
			case hotkey.EventStop:
				selector.Current().Finish()
			case hotkey.EventSwitch:
				engine, err := selector.Next()
				if err != nil {
					logger.Error("switching engine", "error", err)
					continue
				}
				logger.Info("engine selected", "engine", engine)
				display.Render(transcripts[engine].Snapshot())
			}

		case <-ctx.Done():
			logger.Info("shutting down")
			shutdown()
			listener.Stop()
			// Exit directly to avoid gohook's C cleanup crash.
			// The OS reclaims the event hook on process exit.
			os.Exit(0)
		}
	}
}

// recognizeFile runs one session over the replayed file and finalizes it
// once the file has been delivered.
func recognizeFile(ctx context.Context, c *session.Coordinator, in *audio.FileInput, logger *slog.Logger) {
	if err := c.Start(ctx); err != nil {
		logStartError(logger, err)
		return
	}

	select {
	case <-in.Ended():
		c.Finish()
	case <-ctx.Done():
		c.Stop()
		return
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for c.State() != session.StateIdle {
		select {
		case <-ctx.Done():
			c.Stop()
			return
		case <-ticker.C:
		}
	}
	if err := c.Err(); err != nil {
		logger.Error("recognition failed", "error", err)
	}
}

// deliver returns an OnFinal callback that injects text asynchronously.
func deliver(injector inject.TextInjector, logger *slog.Logger) func(string) {
	return func(text string) {
		go func() {
			if err := injector.Inject(text); err != nil {
				logger.Error("text injection failed", "error", err)
				return
			}
			logger.Debug("text delivered", "chars", len([]rune(text)))
		}()
	}
}

// logStartError reports start failures the coordinator has not already
// logged.
func logStartError(logger *slog.Logger, err error) {
	switch {
	case err == nil:
	case errors.Is(err, session.ErrSessionAlreadyActive),
		errors.Is(err, session.ErrStreamCancelled):
		logger.Debug("start skipped", "reason", err)
	case errors.Is(err, session.ErrPermissionDenied):
		logger.Warn("not recording: speech recognition or microphone is unavailable")
	}
}

func recognizerOptions(cfg *config.Config, lang string) recognize.Options {
	return recognize.Options{
		SampleRate:       int(cfg.Audio.SampleRate),
		Channels:         int(cfg.Audio.Channels),
		Language:         lang,
		PartialInterval:  cfg.Recognition.PartialInterval,
		MaxDuration:      cfg.Recognition.LegacyMaxDuration,
		SilenceThreshold: cfg.Recognition.SilenceThreshold,
		SilenceDuration:  cfg.Recognition.SilenceDuration,
		MaxSegment:       cfg.Recognition.MaxSegment,
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		logger.Info("config loaded", "path", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	logger.Info("no config file found, using defaults")
	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config, lang, input string) {
	source := "microphone"
	if input != "" {
		source = input
	}
	fmt.Println("=== gostt-live ===")
	fmt.Printf("  Engine:  %s\n", cfg.Engine)
	fmt.Printf("  Locale:  %s (%s)\n", cfg.Locale, lang)
	fmt.Printf("  Model:   %s\n", cfg.ModelPath)
	fmt.Printf("  Input:   %s\n", source)
	fmt.Printf("  Hotkey:  %s (%s mode), switch %s\n", hotkey.Describe(cfg.Hotkey.Keys), cfg.Hotkey.Mode, hotkey.Describe(cfg.Hotkey.SwitchKeys))
	fmt.Printf("  Audio:   %dHz, %dch\n", cfg.Audio.SampleRate, cfg.Audio.Channels)
	fmt.Printf("  Inject:  %s\n", cfg.Inject.Method)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("==================")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
