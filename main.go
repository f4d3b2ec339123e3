package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/marker.anchor/internal/config"
	"github.com/banshee-data/marker.anchor/internal/db"
	"github.com/banshee-data/marker.anchor/internal/marker"
	"github.com/banshee-data/marker.anchor/internal/marker/monitor"
	storage "github.com/banshee-data/marker.anchor/internal/marker/storage/sqlite"
	"github.com/banshee-data/marker.anchor/internal/timeutil"
	"github.com/banshee-data/marker.anchor/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Monitor listen address")
	dbFile        = flag.String("db", "marker_sessions.db", "Session database path")
	migrationsDir = flag.String("migrations", "migrations", "Migrations directory")
	configPath    = flag.String("config", config.DefaultConfigPath, "Tuning config JSON")
	fixturesPath  = flag.String("fixtures", "fixtures.json", "Scripted detection fixtures")
	tickInterval  = flag.Duration("interval", 33*time.Millisecond, "Tick interval")
	maxTicks      = flag.Uint64("ticks", 0, "Stop after N ticks (0 = run until signal)")
)

func main() {
	flag.Parse()

	log.Printf("marker-anchor %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, os.ErrNotExist) && *configPath == config.DefaultConfigPath:
			// Built-in defaults apply when the stock config file is absent.
		default:
			log.Fatalf("failed to load config: %v", err)
		}
	}
	params := marker.ParamsFromTuning(cfg)
	dict, err := marker.ParseDictionary(params.DictionaryName)
	if err != nil {
		log.Fatalf("invalid dictionary: %v", err)
	}
	log.Printf("dictionary %s (%dx%d grid, %d ids)", dict.Name, dict.Bits, dict.Bits, dict.Size)

	fixtures, err := LoadFixtures(*fixturesPath)
	if err != nil {
		log.Fatalf("failed to load fixtures: %v", err)
	}
	source := NewSyntheticFrameSource(fixtures.Width, fixtures.Height)
	factory := func(frameWidth int) (marker.MarkerLocator, error) {
		return marker.NewScriptedLocator(fixtures.Ticks), nil
	}

	scene := marker.NewRecordingScene()
	pipeline, err := marker.NewPipeline(params, factory, scene)
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}

	sessionDB, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open session db: %v", err)
	}
	defer sessionDB.Close()
	if err := sessionDB.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("failed to migrate session db: %v", err)
	}

	store := storage.NewSessionStore(sessionDB.DB)
	session := &storage.Session{
		Dictionary:  params.DictionaryName,
		FrameWidth:  fixtures.Width,
		FrameHeight: fixtures.Height,
	}
	if err := store.CreateSession(session); err != nil {
		log.Fatalf("failed to create session: %v", err)
	}
	log.Printf("session %s started (%d scripted ticks)", session.SessionID, len(fixtures.Ticks))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ws := monitor.NewWebServer(*listen, pipeline)
	go func() {
		if err := ws.Start(ctx); err != nil {
			log.Printf("monitor shutdown: %v", err)
		}
	}()

	runLoop(ctx, timeutil.RealClock{}, pipeline, source, *tickInterval, *maxTicks)

	persistSession(pipeline, store, session.SessionID)
	if err := pipeline.Close(); err != nil {
		log.Printf("pipeline close: %v", err)
	}
	log.Printf("session %s finished", session.SessionID)
}

// runLoop drives the pipeline at the configured tick rate until the
// context is cancelled or the tick budget is exhausted.
func runLoop(ctx context.Context, clock timeutil.Clock, pipeline *marker.Pipeline, source marker.FrameSource, interval time.Duration, maxTicks uint64) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	var ticks uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if _, err := pipeline.Tick(source); err != nil {
				log.Printf("tick failed: %v", err)
				return
			}
			ticks++
			if maxTicks > 0 && ticks >= maxTicks {
				return
			}
		}
	}
}

// persistSession writes the retained tick history and final summary to the
// session store.
func persistSession(pipeline *marker.Pipeline, store *storage.SessionStore, sessionID string) {
	for _, rec := range pipeline.TickHistory() {
		stat := &storage.TickStat{
			SessionID:   sessionID,
			Tick:        rec.Tick,
			MarkerCount: rec.MarkerCount,
			AnchorCount: rec.AnchorCount,
			PoseCount:   rec.PoseCount,
		}
		if err := store.RecordTick(stat); err != nil {
			log.Printf("record tick %d: %v", rec.Tick, err)
		}
	}

	summary, err := json.Marshal(pipeline.Stats())
	if err != nil {
		log.Printf("marshal summary: %v", err)
		return
	}
	if width, height := pipeline.FrameSize(); width > 0 {
		if err := store.UpdateFrameSize(sessionID, width, height); err != nil {
			log.Printf("update frame size: %v", err)
		}
	}
	if err := store.FinishSession(sessionID, summary); err != nil {
		log.Printf("finish session: %v", err)
	}
}
