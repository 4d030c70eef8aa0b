package cmd

import (
	"fmt"
	"log/slog"

	"github.com/WonderMr/agents/core/classifier"
	"github.com/WonderMr/agents/core/config"
	"github.com/WonderMr/agents/core/embedder"
	"github.com/WonderMr/agents/core/language"
	"github.com/WonderMr/agents/core/orchestrator"
	"github.com/WonderMr/agents/core/reqcontext"
	"github.com/WonderMr/agents/core/resolver"
	"github.com/WonderMr/agents/core/retrieval"
	"github.com/WonderMr/agents/core/router"
	"github.com/WonderMr/agents/core/session"
	"github.com/WonderMr/agents/core/vectorstore"
)

// routerCollection is the vector collection holding routing decisions.
const routerCollection = "router_cache"

// app is the wired engine behind every command.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	orchestrator *orchestrator.Orchestrator
	router       *router.SemanticRouter
	skills       *retrieval.Retriever
	implants     *retrieval.Retriever

	stores   []vectorstore.Store
	keywords []*retrieval.KeywordIndex
	watchers []*retrieval.Watcher
}

// newApp loads configuration and wires the full pipeline.
func newApp(logger *slog.Logger) (*app, error) {
	cfg, err := loadConfig(config.NewManager(flagConfig), flagRoot)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	emb := embedder.New(cfg.Embedder)

	routerStore, err := a.openStore(routerCollection, emb)
	if err != nil {
		return nil, err
	}
	skillsStore, err := a.openStore("skills_store", emb)
	if err != nil {
		a.Close()
		return nil, err
	}
	implantsStore, err := a.openStore("implants_store", emb)
	if err != nil {
		a.Close()
		return nil, err
	}

	skillsKeyword, err := a.openKeywordIndex(logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	implantsKeyword, err := a.openKeywordIndex(logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.skills = retrieval.New(retrieval.Config{
		Dir:        cfg.SkillsDir(),
		Collection: "skills_store",
		Threshold:  cfg.Retrieval.SkillsThreshold,
		DefaultN:   cfg.Retrieval.SkillsN,
		Store:      skillsStore,
		Keyword:    skillsKeyword,
		Logger:     logger,
	})
	a.implants = retrieval.New(retrieval.Config{
		Dir:        cfg.ImplantsDir(),
		Collection: "implants_store",
		Threshold:  cfg.Retrieval.ImplantsThreshold,
		DefaultN:   cfg.Retrieval.ImplantsN,
		Store:      implantsStore,
		Keyword:    implantsKeyword,
		Logger:     logger,
	})

	cls, err := classifier.New(cfg.Classifier)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("classifier: %w", err)
	}

	agents := router.ScanAgents(cfg.AgentsDir(), logger)
	a.router = router.New(routerStore, cls, agents,
		router.WithLogger(logger),
		router.WithConfig(cfg.Router))

	res, err := resolver.New(cfg.Root, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	sessions, err := session.New(cfg.Session.Capacity)
	if err != nil {
		a.Close()
		return nil, err
	}

	detector := language.New(language.Config{Logger: logger})
	builder := reqcontext.NewBuilder(detector, logger)

	a.orchestrator = orchestrator.New(a.router, res, a.skills, a.implants, sessions, builder, logger)
	return a, nil
}

// loadConfig loads the active configuration and returns a private copy with
// the CLI root override applied. The manager's shared tree stays untouched.
func loadConfig(manager *config.Manager, rootOverride string) (*config.Config, error) {
	if err := manager.Load(); err != nil {
		return nil, err
	}
	cfg := *manager.Get()
	if rootOverride != "" {
		cfg.Root = rootOverride
	}
	return &cfg, nil
}

// openStore builds one vector collection on the configured backend, wrapped
// in a bounded worker pool.
func (a *app) openStore(collection string, emb embedder.Embedder) (vectorstore.Store, error) {
	var store vectorstore.Store
	switch a.cfg.Store.Provider {
	case "memory":
		store = vectorstore.NewMemory(emb)
	case "sqlite":
		s, err := vectorstore.NewSQLite(a.cfg.StorePath(), collection, emb)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", collection, err)
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown store provider %q", a.cfg.Store.Provider)
	}

	pooled := vectorstore.NewPool(store, a.cfg.Store.Workers)
	a.stores = append(a.stores, pooled)
	return pooled, nil
}

// openKeywordIndex builds one per-library keyword side index. Each library
// gets its own index so keyword search never crosses libraries.
func (a *app) openKeywordIndex(logger *slog.Logger) (*retrieval.KeywordIndex, error) {
	keyword, err := retrieval.NewKeywordIndex(retrieval.DefaultKeywordCacheSize, logger)
	if err != nil {
		return nil, fmt.Errorf("keyword index: %w", err)
	}
	a.keywords = append(a.keywords, keyword)
	return keyword, nil
}

// watch starts directory watchers that mark the libraries stale on change.
// Only useful for long-running commands.
func (a *app) watch() error {
	targets := []struct {
		dir       string
		retriever *retrieval.Retriever
	}{
		{a.cfg.SkillsDir(), a.skills},
		{a.cfg.ImplantsDir(), a.implants},
	}

	for _, target := range targets {
		w, err := retrieval.NewWatcher(retrieval.WatcherConfig{
			Dir:             target.dir,
			ExcludePatterns: a.cfg.Retrieval.WatchExclude,
			Debounce:        a.cfg.Retrieval.WatchDebounce,
			Logger:          a.logger,
		}, target.retriever.MarkDirty)
		if err != nil {
			return fmt.Errorf("watch %s: %w", target.dir, err)
		}
		a.watchers = append(a.watchers, w)
	}
	return nil
}

// Close releases watchers, keyword indexes and stores.
func (a *app) Close() {
	for _, w := range a.watchers {
		w.Close()
	}
	for _, k := range a.keywords {
		if err := k.Close(); err != nil {
			a.logger.Warn("keyword index close failed", slog.String("error", err.Error()))
		}
	}
	for _, s := range a.stores {
		if err := s.Close(); err != nil {
			a.logger.Warn("store close failed", slog.String("error", err.Error()))
		}
	}
}
