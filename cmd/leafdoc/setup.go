package main

import (
	"fmt"

	"github.com/crimson-sun/leafdoc/internal/config"
	"github.com/crimson-sun/leafdoc/internal/engine"
	"github.com/crimson-sun/leafdoc/internal/engine/classifier"
	"github.com/crimson-sun/leafdoc/internal/engine/taxonomy"
	"github.com/crimson-sun/leafdoc/internal/logging"
	"github.com/crimson-sun/leafdoc/internal/model"
	"github.com/crimson-sun/leafdoc/internal/output/webhook"
)

// loadConfig reads configuration and initializes logging.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	return cfg, nil
}

// loadValidConfig is loadConfig plus validation, for commands that load the
// model.
func loadValidConfig() (config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config:\n%w", err)
	}
	return cfg, nil
}

// openEngine loads the diagnosis table and the model. The returned
// classifier must be closed by the caller.
func openEngine(cfg config.EngineConfig) (*engine.Engine, *classifier.Classifier, error) {
	tax, err := taxonomy.Load(cfg.TablePath)
	if err != nil {
		return nil, nil, err
	}

	cls, err := classifier.New(cfg.ModelPath, model.NumClasses,
		classifier.WithRuntimeLibrary(cfg.RuntimeLib()),
		classifier.WithIntraOpThreads(cfg.IntraOpThreads),
	)
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(cls, tax, cfg.ConfidenceThreshold)
	if err != nil {
		cls.Close()
		return nil, nil, err
	}
	return eng, cls, nil
}

// newWebhook returns the configured diagnosis webhook, or nil when none is
// set.
func newWebhook(cfg config.NotifyConfig) *webhook.Output {
	if cfg.WebhookURL == "" {
		return nil
	}
	opts := []webhook.Option{webhook.WithTimeout(cfg.Timeout)}
	if cfg.WithReport {
		opts = append(opts, webhook.WithReport())
	}
	return webhook.New(cfg.WebhookURL, opts...)
}
