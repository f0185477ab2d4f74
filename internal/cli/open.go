package cli

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/roach88/convexauth/internal/adapter"
	"github.com/roach88/convexauth/internal/config"
	"github.com/roach88/convexauth/internal/engine"
	"github.com/roach88/convexauth/internal/schema"
)

// loadConfig resolves the effective configuration: the file named by
// --config when given, built-in defaults otherwise. --store overrides the
// file's store path when non-empty.
func loadConfig(opts *RootOptions, storeOverride string) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "loading config", err)
		}
		cfg = loaded
	}
	if storeOverride != "" {
		cfg.StorePath = storeOverride
	}
	return cfg, nil
}

// buildSchema returns the builtin table descriptor, extended with plugin
// tables when the config names a CUE file.
func buildSchema(cfg config.Config) (*schema.Schema, error) {
	sch := schema.Default()
	if cfg.SchemaFile == "" {
		return sch, nil
	}
	tables, err := schema.LoadExtensions(cfg.SchemaFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading schema extensions", err)
	}
	sch, err = sch.WithTables(tables)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "merging schema extensions", err)
	}
	return sch, nil
}

// openStore opens the SQLite store, retrying briefly with exponential
// backoff. Another process holding the database open during its own
// maintenance window is transient; a missing parent directory is not, but
// the retry budget is small enough that failing slow is acceptable.
func openStore(cfg config.Config, sch *schema.Schema) (*engine.Store, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = 2 * time.Second

	var store *engine.Store
	err := backoff.Retry(func() error {
		var err error
		store, err = engine.Open(cfg.StorePath, sch)
		return err
	}, bo)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening store", err)
	}
	return store, nil
}

// openAdapter is the common preamble of commands that operate on records.
func openAdapter(opts *RootOptions, storeOverride string) (*adapter.Adapter, *engine.Store, error) {
	cfg, err := loadConfig(opts, storeOverride)
	if err != nil {
		return nil, nil, err
	}
	sch, err := buildSchema(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(cfg, sch)
	if err != nil {
		return nil, nil, err
	}

	var aopts []adapter.Option
	if cfg.BulkPageSize > 0 {
		aopts = append(aopts, adapter.WithBulkPageSize(cfg.BulkPageSize))
	}
	return adapter.New(store, sch, aopts...), store, nil
}
