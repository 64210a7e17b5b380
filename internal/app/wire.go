package app

import (
	"log/slog"
	"os"
	"path/filepath"

	"didstore/internal/backend"
	"didstore/internal/didstore"
	"didstore/internal/domain"
	identitysvc "didstore/internal/services/identity"
	"didstore/internal/services/lifecycle"
	"didstore/internal/store"
)

// Wire bundles the store, ledger and services for the CLI.
type Wire struct {
	Log       *slog.Logger
	Store     *didstore.Store
	Ledger    *backend.Ledger
	Identity  *identitysvc.Service
	Lifecycle *lifecycle.Controller
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger()
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}

	// Storage backend
	var storage domain.Storage
	var err error
	switch cfg.Driver {
	case DriverLevelDB:
		storage, err = store.NewLevelStore(filepath.Join(cfg.Home, "store.ldb"))
	default:
		storage, err = store.NewFileStore(filepath.Join(cfg.Home, "store"))
	}
	if err != nil {
		return nil, err
	}

	st, err := didstore.Open(didstore.Config{
		Storage:       storage,
		Logger:        log.With("component", "store"),
		CacheCapacity: cfg.CacheCapacity,
		CacheTTL:      cfg.CacheTTL,
		ScryptN:       cfg.ScryptN,
		ScryptR:       cfg.ScryptR,
		ScryptP:       cfg.ScryptP,
	})
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	// Ledger kept beside the store unless configured elsewhere
	ledgerPath := cfg.LedgerPath
	if ledgerPath == "" {
		ledgerPath = filepath.Join(cfg.Home, "ledger.json")
	}
	ledger, err := backend.NewLedger(backend.Config{Path: ledgerPath, Logger: log.With("component", "ledger")})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	// High-level services
	return &Wire{
		Log:      log,
		Store:    st,
		Ledger:   ledger,
		Identity: identitysvc.New(st),
		Lifecycle: lifecycle.New(lifecycle.Config{
			Store:          st,
			Backend:        ledger,
			Logger:         log.With("component", "lifecycle"),
			CacheTTL:       cfg.ResolverTTL,
			BackendTimeout: cfg.BackendTimeout,
		}),
	}, nil
}

// Close releases the store.
func (w *Wire) Close() error {
	if w == nil || w.Store == nil {
		return nil
	}
	return w.Store.Close()
}
