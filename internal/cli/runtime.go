package cli

import (
	"fmt"
	"os"

	"github.com/lazypower/mnemo/internal/config"
	"github.com/lazypower/mnemo/internal/engine"
	"github.com/lazypower/mnemo/internal/logging"
	"github.com/lazypower/mnemo/internal/store"
	"go.uber.org/zap"
)

// runtime is everything a command needs: config, logger, the open database
// and an engine over the stored graph.
type runtime struct {
	cfg    config.Config
	log    *zap.Logger
	db     *store.DB
	engine *engine.Engine
}

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openDB opens the configured database, falling back to ~/.mnemo/mnemo.db.
func openDB(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// explicitPhase returns the phase asked for on this invocation: the --phase
// flag, then MNEMO_PHASE. Empty means none was given.
func explicitPhase() string {
	if phaseOverride != "" {
		return phaseOverride
	}
	return os.Getenv("MNEMO_PHASE")
}

// openRuntime loads the stored graph into a fresh engine. An explicit phase
// wins, then the phase of the latest snapshot, then the configured
// initial_phase. The query counter resumes from the latest snapshot.
func openRuntime(opts ...engine.Option) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	g, err := db.LoadGraph()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load graph: %w", err)
	}
	snap, err := db.LatestSnapshot()
	if err != nil {
		db.Close()
		return nil, err
	}

	base := []engine.Option{engine.WithLogger(log)}
	if explicit := explicitPhase(); explicit != "" {
		cfg.Engine.InitialPhase = explicit
	} else if snap != nil {
		if _, err := engine.ParsePhase(snap.Phase); err == nil {
			cfg.Engine.InitialPhase = snap.Phase
		}
	}
	if snap != nil {
		base = append(base, engine.WithQueryCount(snap.Queries))
	}

	eng, err := engine.New(g, cfg.Engine, append(base, opts...)...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &runtime{cfg: cfg, log: log, db: db, engine: eng}, nil
}

func (rt *runtime) save() error {
	snap, err := rt.db.SaveGraph(rt.engine.Graph(), string(rt.engine.Phase()), rt.engine.Queries())
	if err != nil {
		return fmt.Errorf("save graph: %w", err)
	}
	rt.log.Debug("graph saved",
		zap.Int64("snapshot", snap.ID),
		zap.Int("nodes", snap.Nodes),
		zap.Int("synapses", snap.Synapses),
		zap.Int("hyperedges", snap.Hyperedges),
		zap.Int("queries", snap.Queries))
	return nil
}

func (rt *runtime) close() {
	rt.log.Sync()
	rt.db.Close()
}
