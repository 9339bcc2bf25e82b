package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"scope-quote/api"
	"scope-quote/db/clickhouse"
	"scope-quote/db/postgres"
	"scope-quote/decision/compliance"
	"scope-quote/decision/estimation"
	"scope-quote/decision/measurement"
	"scope-quote/decision/policy"
	"scope-quote/decision/questions"
	"scope-quote/decision/scope"
	"scope-quote/internal/config"
	"scope-quote/internal/logging"
	"scope-quote/internal/metrics"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// buildEngine wires the four pipeline components from config.
func buildEngine(cfg *config.Config, logger *zap.Logger, m *metrics.Collectors) *estimation.Engine {
	jurisdiction := compliance.Jurisdiction(cfg.Estimation.Jurisdiction)

	return estimation.NewEngine(
		estimation.WithParser(scope.NewParser(scope.WithJurisdiction(jurisdiction))),
		estimation.WithCalculator(measurement.NewCalculator(measurement.DefaultTables().Apply(cfg.MeasurementOverrides()))),
		estimation.WithQuestionGenerator(questions.NewGenerator(
			questions.WithThreshold(cfg.Estimation.QuestionThreshold),
			questions.WithJurisdiction(jurisdiction),
		)),
		estimation.WithPolicyEngine(policy.NewEngine(policy.WithThresholds(cfg.Estimation.Policy))),
		estimation.WithSettings(cfg.Estimation.Settings()),
		estimation.WithLogger(logger),
		estimation.WithMetrics(m),
	)
}

// stores holds the optional persistence backends.
type stores struct {
	audit  *clickhouse.Store
	quotes *postgres.Store
	logger *zap.Logger
}

// openStores connects the enabled backends and ensures their schemas.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	st := &stores{logger: logger}

	if cfg.ClickHouse.Enabled {
		ch, err := clickhouse.NewStore(&cfg.ClickHouse)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		if err := ch.EnsureSchema(ctx); err != nil {
			ch.Close()
			return nil, err
		}
		st.audit = ch
		logger.Info("audit store connected", zap.String("host", cfg.ClickHouse.Host), zap.String("database", cfg.ClickHouse.Database))
	}

	if cfg.Postgres.Enabled {
		pg, err := postgres.NewStore(&cfg.Postgres)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			st.Close()
			return nil, err
		}
		st.quotes = pg
		logger.Info("quote store connected")
	}

	return st, nil
}

// Save persists result to every backend and returns one warning per failure.
func (s *stores) Save(ctx context.Context, res *estimation.Result) []string {
	var warnings []string
	if s.audit != nil {
		if err := s.audit.SaveResult(ctx, res); err != nil {
			s.logger.Error("failed to save audit trail", zap.String("request_id", res.RequestID), zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("audit trail not saved: %v", err))
		}
	}
	if s.quotes != nil {
		if err := s.quotes.SaveResult(ctx, res); err != nil {
			s.logger.Error("failed to save draft quote", zap.String("request_id", res.RequestID), zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("draft quote not saved: %v", err))
		}
	}
	if s.audit == nil && s.quotes == nil {
		warnings = append(warnings, "no stores are enabled; nothing was persisted")
	}
	return warnings
}

// ServerOptions exposes the backends to the API server.
func (s *stores) ServerOptions() []api.Option {
	var opts []api.Option
	if s.quotes != nil {
		opts = append(opts,
			api.WithSink("quotes", s.quotes),
			api.WithQuoteReader(s.quotes),
			api.WithQuoteLister(s.quotes),
			api.WithReadinessCheck("postgres", s.quotes),
		)
	}
	if s.audit != nil {
		opts = append(opts,
			api.WithSink("audit", s.audit),
			api.WithAuditReader(s.audit),
			api.WithReadinessCheck("clickhouse", s.audit),
		)
	}
	return opts
}

func (s *stores) Close() {
	if s.audit != nil {
		s.audit.Close()
	}
	if s.quotes != nil {
		s.quotes.Close()
	}
}
