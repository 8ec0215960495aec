package diagnosis

import (
	"lechuga_bot_backend/internal/diagnosis/repository"
	"lechuga_bot_backend/internal/events"
	"lechuga_bot_backend/internal/labels"
	"lechuga_bot_backend/internal/tabular"
	"lechuga_bot_backend/internal/vision"
	"lechuga_bot_backend/platform/config"
	"lechuga_bot_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module bundles the diagnosis pipeline behind a single composition point.
type Module struct {
	orchestrator *Orchestrator
	store        *Store
	repo         *repository.Repo
	taxonomy     *labels.Taxonomy
}

// ModuleConfig combines the config interfaces the module needs.
type ModuleConfig interface {
	config.DiagnosisConfig
	config.ClassifierConfig
}

// NewModule wires the diagnosis pipeline.
func NewModule(
	pool *pgxpool.Pool,
	taxonomy *labels.Taxonomy,
	gemini *vision.GeminiClient,
	renderer Renderer,
	formatter TreatmentFormatter,
	channel Channel,
	presence PresenceStore,
	bus events.Bus,
	cfg ModuleConfig,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	store := NewStore()

	analyzer := NewAnalyzer(vision.NewGate(gemini), vision.NewClassifier(cfg), taxonomy, log)
	tab := tabular.NewAdapter(tabular.NewClient(cfg), taxonomy)
	engine := NewEngine(store, repo, channel, log)
	reconciler := NewReconciler(taxonomy, repo, renderer, channel, formatter, bus, cfg, log)

	orchestrator := NewOrchestrator(
		cfg.GetDebounceWindow(),
		store,
		engine,
		analyzer,
		tab,
		reconciler,
		repo,
		presence,
		channel,
		bus,
		cfg,
		log,
	)

	return &Module{
		orchestrator: orchestrator,
		store:        store,
		repo:         repo,
		taxonomy:     taxonomy,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "diagnosis"
}

// Orchestrator returns the update handler for the webhook transport.
func (m *Module) Orchestrator() *Orchestrator {
	return m.orchestrator
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() *repository.Repo {
	return m.repo
}
