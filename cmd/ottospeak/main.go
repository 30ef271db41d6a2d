// OttoSpeak: a speech controller with a terminal prompt.
//
// Usage:
//
//	ottospeak [-verbose] [-quiet] [-no-speech] [-profile voice.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/hammamikhairi/ottospeak/internal/config"
	"github.com/hammamikhairi/ottospeak/internal/conversation"
	"github.com/hammamikhairi/ottospeak/internal/display"
	"github.com/hammamikhairi/ottospeak/internal/domain"
	"github.com/hammamikhairi/ottospeak/internal/logger"
	"github.com/hammamikhairi/ottospeak/internal/metrics"
	"github.com/hammamikhairi/ottospeak/internal/speech"
	"github.com/hammamikhairi/ottospeak/internal/storage"
	"github.com/hammamikhairi/ottospeak/internal/tts"
)

// silentPerRune is how long the silent engine "speaks" each character.
const silentPerRune = 60 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", cfg.LogFile, "file to write logs to (use \"stderr\" to log to console)")
	noSpeech := flag.Bool("no-speech", false, "use the silent engine even if Azure keys are set")
	diskCache := flag.Bool("disk-cache", cfg.DiskCache, "persist TTS audio cache to disk (reads from disk even when false)")
	cacheDir := flag.String("cache-dir", cfg.CacheDir, "directory for persistent TTS audio cache")
	profilePath := flag.String("profile", cfg.ProfilePath, "YAML voice profile, reloaded on change")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (empty = off)")
	flag.Parse()

	// Configure logger.
	logLevel := logger.ParseLevel(cfg.LogLevel)
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Direct logs to a file by default so the prompt stays clean.
	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		f, err := logger.RotatingFile(*logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// Redirect Go's default log package (used by the audio backend) to the
	// same output so it doesn't spam the terminal.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	// The environment prosody is the base every profile reload applies to.
	baseProsody := cfg.Prosody()
	if *profilePath != "" {
		p, err := config.LoadProfile(*profilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		p.ApplyTo(cfg)
	}

	// Set up context, cancelled when the UI quits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mouth := buildMouth(cfg, *noSpeech, *cacheDir, *diskCache, log)
	mouth.Start(ctx)

	ctrl := tts.New(mouth, log.With("component", "tts"),
		tts.WithProsody(cfg.Prosody()),
		tts.WithVoiceMatcher(cfg.VoiceMatcher()),
		tts.WithPollInterval(cfg.PollInterval),
	)
	defer ctrl.Close()

	store := storage.NewMemoryStore(cfg.HistorySize, log)
	ui := display.NewUI(func() display.Status {
		v, _ := ctrl.Voice()
		return display.Status{
			Voice:    v.DisplayName,
			Failed:   ctrl.ResolveErr() != nil,
			Prosody:  ctrl.Prosody(),
			Speaking: mouth.IsSpeaking(),
			Paused:   mouth.IsPaused(),
			Queued:   mouth.QueueLen(),
		}
	})
	notifier := conversation.NewCLINotifier(log, ui.Printf)
	parser := conversation.NewKeywordParser(log)

	if *profilePath != "" {
		watcher, err := config.NewProfileWatcher(*profilePath, log, func(p *config.Profile, err error) {
			if err != nil {
				_ = notifier.NotifyError(ctx, err)
				return
			}
			next := p.ProsodyOver(baseProsody)
			ctrl.SetPitchAndRate(next)
			_ = notifier.Notify(ctx, "profile reloaded: "+next.String())
		})
		if err != nil {
			log.Error("profile watcher disabled: %v", err)
		} else {
			go func() {
				if err := watcher.Run(ctx); err != nil {
					log.Error("profile watcher: %v", err)
				}
			}()
		}
	}

	if *metricsAddr != "" {
		go serveMetrics(ctx, *metricsAddr, log)
	}

	app := &cliApp{
		ctrl:     ctrl,
		mouth:    mouth,
		store:    store,
		parser:   parser,
		notifier: notifier,
		log:      log,
		ui:       ui,
	}

	fmt.Println(display.RenderBanner())
	fmt.Println(display.BannerStyle.Render("  Type something to hear it, 'help' for commands, 'quit' to exit."))
	fmt.Println()

	// Run app logic in a background goroutine.
	go func() {
		ui.WaitReady()
		app.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal; blocks until quit.
	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}
	cancel()
}

// buildMouth picks Azure when credentials exist and the audio device opens,
// and the silent engine otherwise.
func buildMouth(cfg *config.Config, noSpeech bool, cacheDir string, diskCache bool, log *logger.Logger) *speech.Mouth {
	opts := []speech.MouthOption{
		speech.WithChunkSize(cfg.ChunkSize),
		speech.WithCacheDir(cacheDir),
		speech.WithDiskWrite(diskCache),
	}
	engineLog := log.With("component", "mouth")

	if cfg.HasAzure() && !noSpeech {
		azureOpts := []speech.AzureOption{speech.WithHTTPTimeout(cfg.HTTPTimeout)}
		if cfg.AzureEndpoint != "" {
			azureOpts = append(azureOpts, speech.WithEndpoint(cfg.AzureEndpoint))
		}
		client := speech.NewAzureClient(cfg.AzureSpeechKey, cfg.AzureSpeechRegion, log.With("component", "azure"), azureOpts...)
		player, err := speech.NewPlayer(log)
		if err == nil {
			log.Info("TTS enabled (region=%s)", cfg.AzureSpeechRegion)
			return speech.NewMouth(client, client, player, engineLog, opts...)
		}
		log.Error("audio player init failed, using silent engine: %v", err)
	} else if !noSpeech {
		log.Info("TTS silent: set AZURE_SPEECH_KEY and AZURE_SPEECH_REGION to hear speech")
	}

	voices := speech.StaticVoices{
		cfg.TargetVoice(),
		{LanguageTag: "en-US", DisplayName: "Microsoft David - English (United States)", Handle: "silent-en-US"},
	}
	// Silent audio is cheap to make; keep it off disk.
	opts = append(opts, speech.WithCacheDir(""))
	return speech.NewMouth(speech.NewStubSynthesizer(silentPerRune, log), voices, speech.NewNullSink(), engineLog, opts...)
}

func serveMetrics(ctx context.Context, addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server: %v", err)
	}
}

type cliApp struct {
	ctrl     *tts.Controller
	mouth    *speech.Mouth
	store    domain.HistoryStore
	parser   domain.CommandParser
	notifier domain.Notifier
	log      *logger.Logger
	ui       *display.UI
}

func (a *cliApp) run(ctx context.Context) {
	// Resolve the voice up front so the first utterance doesn't wait.
	go func() {
		if err := a.ctrl.Init(ctx); err != nil && ctx.Err() == nil {
			_ = a.notifier.NotifyError(ctx, err)
			a.ui.PrintHint("set OTTOSPEAK_VOICE_FALLBACK=true to accept any voice of the language")
		}
	}()

	uiCh := a.ui.InputChan()
	for {
		var input string
		var ok bool

		select {
		case <-ctx.Done():
			return
		case input, ok = <-uiCh:
			if !ok {
				return
			}
		}

		cmd, err := a.parser.Parse(ctx, input)
		if err != nil {
			_ = a.notifier.NotifyError(ctx, err)
			continue
		}

		a.log.Debug("command: %s (payload=%q)", cmd.Type, cmd.Payload)
		if quit := a.handle(ctx, cmd); quit {
			return
		}
	}
}

// handle runs one command and reports whether the app should exit.
func (a *cliApp) handle(ctx context.Context, cmd *domain.Command) bool {
	switch cmd.Type {
	case domain.CommandSpeak:
		a.speak(ctx, cmd.Payload, false)
	case domain.CommandQueue:
		a.speak(ctx, cmd.Payload, true)
	case domain.CommandPause:
		a.ctrl.Pause()
	case domain.CommandResume:
		a.ctrl.Resume()
	case domain.CommandCancel:
		a.ctrl.Cancel()
	case domain.CommandPitch:
		a.ctrl.SetPitch(cmd.Value)
		a.ui.PrintInfo(a.ctrl.Prosody().String())
	case domain.CommandRate:
		a.ctrl.SetRate(cmd.Value)
		a.ui.PrintInfo(a.ctrl.Prosody().String())
	case domain.CommandVoices:
		a.showVoices()
	case domain.CommandStatus:
		a.status()
	case domain.CommandHistory:
		a.history(ctx)
	case domain.CommandRepeat:
		a.repeat(ctx)
	case domain.CommandHelp:
		a.showHelp()
	case domain.CommandQuit:
		a.ctrl.Cancel()
		a.ui.PrintHint("bye")
		return true
	}
	return false
}

func (a *cliApp) speak(ctx context.Context, text string, appended bool) {
	var opts []tts.SpeakOption
	if appended {
		opts = append(opts, tts.Append())
	}

	pb, err := a.ctrl.Speak(ctx, text, opts...)
	if err != nil {
		_ = a.notifier.NotifyError(ctx, err)
		return
	}
	a.ui.PrintSpoken(text)

	u := pb.Utterance()
	rec := &domain.Record{
		ID:       u.ID,
		Text:     u.Text,
		Voice:    u.Voice.DisplayName,
		Prosody:  u.Prosody,
		Appended: appended,
		Status:   domain.RecordQueued,
		QueuedAt: time.Now(),
	}
	if err := a.store.Save(ctx, rec); err != nil {
		a.log.Error("saving record: %v", err)
	}

	go a.track(ctx, pb, rec)
}

// track waits for the engine to finish with an utterance and records the
// outcome.
func (a *cliApp) track(ctx context.Context, pb *tts.Playback, rec *domain.Record) {
	err := pb.Wait(ctx)
	if ctx.Err() != nil {
		return
	}

	rec.FinishedAt = time.Now()
	switch {
	case err == nil:
		rec.Status = domain.RecordFinished
	case errors.Is(err, domain.ErrInterrupted):
		rec.Status = domain.RecordInterrupted
	default:
		rec.Status = domain.RecordFailed
		rec.Err = err.Error()
	}

	if err := a.store.Update(ctx, rec); err != nil && !errors.Is(err, domain.ErrNotFound) {
		a.log.Error("updating record: %v", err)
	}
	// Interruptions are the normal result of typing over speech.
	if rec.Status != domain.RecordInterrupted {
		_ = a.notifier.NotifyFinished(ctx, rec)
	}
}

func (a *cliApp) showVoices() {
	voices := a.mouth.Voices()
	if len(voices) == 0 {
		a.ui.PrintHint("voice list not loaded yet")
		return
	}
	current, _ := a.ctrl.Voice()
	for _, v := range voices {
		mark := "  "
		if v == current {
			mark = "▸ "
		}
		a.ui.PrintInfo(mark + v.String())
	}
}

func (a *cliApp) status() {
	m := a.ctrl.Matcher()
	a.ui.PrintInfo(fmt.Sprintf("target:  %s (%s, fallback=%t)", m.DisplayName, m.LanguageTag, m.LanguageFallback))
	switch v, ok := a.ctrl.Voice(); {
	case ok:
		a.ui.PrintInfo("voice:   " + v.String())
	case a.ctrl.ResolveErr() != nil:
		a.ui.PrintUrgent("voice:   " + a.ctrl.ResolveErr().Error())
	default:
		a.ui.PrintHint("voice:   resolving")
	}
	a.ui.PrintInfo("prosody: " + a.ctrl.Prosody().String())

	state := "idle"
	switch {
	case a.mouth.IsPaused():
		state = "paused"
	case a.mouth.IsSpeaking():
		state = "speaking"
	}
	a.ui.PrintInfo(fmt.Sprintf("engine:  %s, %d queued", state, a.mouth.QueueLen()))

	cache := a.mouth.Cache()
	hits, misses := cache.Stats()
	a.ui.PrintInfo(fmt.Sprintf("cache:   %d entries, %d hits, %d misses", cache.Len(), hits, misses))
}

func (a *cliApp) history(ctx context.Context) {
	recs, err := a.store.Recent(ctx, 10)
	if err != nil {
		_ = a.notifier.NotifyError(ctx, err)
		return
	}
	if len(recs) == 0 {
		a.ui.PrintHint("nothing spoken yet")
		return
	}
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		a.ui.PrintInfo(fmt.Sprintf("%s  %-11s %s  %s", r.QueuedAt.Format("15:04:05"), r.Status, r.Prosody, r.Text))
	}
}

func (a *cliApp) repeat(ctx context.Context) {
	last, err := a.store.Last(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.ui.PrintHint("nothing to repeat")
			return
		}
		_ = a.notifier.NotifyError(ctx, err)
		return
	}
	a.speak(ctx, last.Text, false)
}

func (a *cliApp) showHelp() {
	a.ui.PrintInfo("Commands:")
	a.ui.PrintHint("  <text> / say ...   Speak, replacing anything queued or playing")
	a.ui.PrintHint("  + ... / queue ...  Speak after what is already queued")
	a.ui.PrintHint("  pause / resume     Pause or resume playback")
	a.ui.PrintHint("  stop / cancel      Drop everything queued or playing")
	a.ui.PrintHint("  pitch <n>          Set pitch (1 is normal)")
	a.ui.PrintHint("  rate <n>           Set rate (1 is normal)")
	a.ui.PrintHint("  voices             List the engine's voices")
	a.ui.PrintHint("  status             Show voice, prosody and engine state")
	a.ui.PrintHint("  history            Show recent utterances")
	a.ui.PrintHint("  repeat / again     Speak the last utterance again")
	a.ui.PrintHint("  help               Show this message")
	a.ui.PrintHint("  quit / exit        Exit")
}
