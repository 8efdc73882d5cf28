// Command server runs the address-change processing service: citizen intake,
// the employee review API, the case pipeline, and the audit outbox relay.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"meldeamt/internal/audit"
	"meldeamt/internal/auth"
	"meldeamt/internal/broadcast"
	"meldeamt/internal/caserec/handler"
	casestore "meldeamt/internal/caserec/store"
	"meldeamt/internal/certificate"
	"meldeamt/internal/extract"
	"meldeamt/internal/intake"
	"meldeamt/internal/outbox"
	"meldeamt/internal/patterns"
	patternstore "meldeamt/internal/patterns/store"
	"meldeamt/internal/pipeline"
	"meldeamt/internal/platform/config"
	"meldeamt/internal/platform/httpserver"
	"meldeamt/internal/platform/logger"
	"meldeamt/internal/platform/metrics"
	platformredis "meldeamt/internal/platform/redis"
	"meldeamt/internal/quality"
	"meldeamt/internal/registry"
	"meldeamt/internal/rules"
	"meldeamt/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	cache, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	m := metrics.New()
	hub := broadcast.NewHub(64)

	outboxStore := outbox.NewPostgresStore(db)
	publisher, err := outbox.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
	}

	recorder := audit.NewRecorder(audit.NewPostgresStore(db), hub, outboxStore, log)

	patternSvc := patterns.NewService(patternstore.NewPostgresResolutionStore(db), cache, m, log)
	cases := casestore.NewPostgresCaseStore(db)
	registrySvc := registry.NewService(cases, recorder, log)
	assessor := quality.NewAssessor(cases, patternSvc, recorder, m, log)
	engine := rules.NewEngine(cases, recorder, m, log)

	var mailer certificate.Mailer = certificate.NopMailer{}
	if cfg.SMTP.Enable {
		mailer = certificate.NewSMTPMailer(cfg.SMTP.Addr, cfg.SMTP.From)
	}
	certs := certificate.NewService(cases, recorder,
		certificate.NewFileRenderer(cfg.Server.ArtifactsDir), mailer, m, log)

	runner := pipeline.NewRunner(cases, registrySvc, assessor, engine, certs, recorder, m, log)
	intakeSvc := intake.NewService(cases, recorder, patternSvc, runner, tx.NewRunner(db), m, log)

	var classifier extract.Classifier = extract.KeywordClassifier{}
	var parser extract.Parser = extract.KeywordParser{}
	if cfg.OpenAI.APIKey != "" {
		ex := extract.NewOpenAIExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		classifier, parser = ex, ex
	}
	docIntake := intake.NewDocumentIntake(intakeSvc, classifier, parser, log)

	authSvc := auth.NewService([]byte(cfg.Auth.JWTSigningKey),
		cfg.Auth.AdminEmail, cfg.Auth.AdminPasswordHash, cfg.Auth.SessionTTL, log)

	router := handler.NewRouter(handler.RouterDeps{
		Cases:    handler.New(intakeSvc, docIntake, cases, recorder, runner, hub, log),
		Auth:     authSvc,
		Patterns: patternSvc,
		Health:   handler.NewHealthHandler(db, cache),
		Logger:   log,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if publisher != nil {
		relay := outbox.NewRelay(outboxStore, publisher, log)
		g.Go(func() error {
			if err := relay.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Info("kafka relay disabled, audit events stay in the outbox")
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
