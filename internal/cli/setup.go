package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/zasylogic/casebridge/internal/diaple"
	"github.com/zasylogic/casebridge/internal/ingest"
	"github.com/zasylogic/casebridge/internal/mail"
	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/provider/registry"
	"github.com/zasylogic/casebridge/internal/store"
	"github.com/zasylogic/casebridge/internal/store/sqlite"
	"github.com/zasylogic/casebridge/internal/util"
	"github.com/zasylogic/casebridge/internal/worker"
)

// loadConfig builds the effective configuration: defaults, then the YAML
// config file, then CASEBRIDGE_* environment overrides for the settings
// that carry secrets.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := viper.GetString("store_path"); v != "" {
		cfg.Store.Path = v
	}
	if v := viper.GetString("downstream_username"); v != "" {
		cfg.Downstream.Username = v
	}
	if v := viper.GetString("downstream_password"); v != "" {
		cfg.Downstream.Password = v
	}
	cfg.Output.Verbose = cfg.Output.Verbose || viper.GetBool("verbose")
	return cfg, nil
}

// runtime is everything a command needs to execute provider runs.
type runtime struct {
	cfg    *model.Config
	store  store.Store
	runner *ingest.Runner
	deps   registry.Deps
	log    zerolog.Logger
}

// buildRuntime opens the store and wires the shared collaborators. The
// caller owns the store and must Close it.
func buildRuntime(ctx context.Context, cfg *model.Config) (*runtime, error) {
	log := newLogger(cfg.Output.Verbose)

	st, err := sqlite.Open(ctx, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	httpClient := &http.Client{
		Timeout: cfg.HTTP.Timeout,
		Transport: &http.Transport{
			Proxy: util.ProxySelector(cfg.HTTP),
		},
	}
	limits := worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize)

	var downstream diaple.API
	if cfg.Downstream.BaseURL != "" {
		tokens := diaple.NewTokenCache(
			cfg.Downstream.BaseURL+"/login",
			cfg.Downstream.Username,
			cfg.Downstream.Password,
			cfg.Downstream.TokenSlack,
			httpClient,
		)
		downstream = diaple.NewClient(cfg.Downstream.BaseURL, tokens,
			limits.For(cfg.Downstream.BaseURL), httpClient, log)
	}

	deps := registry.Deps{
		Mail:       mail.DirSource{Root: cfg.Mail.SpoolDir},
		Downstream: downstream,
		HTTP:       httpClient,
		Limits:     limits,
		Log:        log,
	}

	return &runtime{
		cfg:    cfg,
		store:  st,
		runner: ingest.NewRunner(st, log),
		deps:   deps,
		log:    log,
	}, nil
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// selectAccounts filters the configured accounts by name. No names means
// every account.
func selectAccounts(cfg *model.Config, names []string) ([]model.ProviderAccount, error) {
	if len(names) == 0 {
		return cfg.Accounts, nil
	}
	byName := make(map[string]model.ProviderAccount, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		byName[a.Name] = a
	}
	out := make([]model.ProviderAccount, 0, len(names))
	for _, name := range names {
		account, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown account %q (check the accounts section of the config)", name)
		}
		out = append(out, account)
	}
	return out, nil
}
