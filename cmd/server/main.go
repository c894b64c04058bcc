package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"jobscout/internal/api/routes"
	"jobscout/internal/browser"
	"jobscout/internal/captcha"
	"jobscout/internal/config"
	"jobscout/internal/embeddings"
	"jobscout/internal/jobstore"
	"jobscout/internal/logging"
	"jobscout/internal/login"
	"jobscout/internal/matcher"
	"jobscout/internal/monitor"
	"jobscout/internal/pipeline"
	"jobscout/internal/resume"
	"jobscout/internal/retriever"
	"jobscout/internal/scorer"
	"jobscout/internal/session"
	"jobscout/internal/vectorstore"
)

func main() {
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("starting jobscout", map[string]interface{}{"name": cfg.App.Name})

	store, err := jobstore.Open(cfg.Database.Path, logger)
	if err != nil {
		logger.Error("failed to open job store", map[string]interface{}{"error": err.Error()})
		return
	}
	defer store.Close()

	embedder, err := embeddings.New(cfg)
	if err != nil {
		logger.Error("failed to select embedding model", map[string]interface{}{"error": err.Error()})
		return
	}

	vecStore, err := vectorstore.Open(cfg, embedder, logger)
	if err != nil {
		logger.Error("failed to open vector store", map[string]interface{}{"error": err.Error()})
		return
	}
	defer vecStore.Close()

	retrieverCfg := retriever.Config{
		FreshBoost:      cfg.RAGSystem.VectorDB.TimeAwareSearch.FreshDataBoost,
		FreshDays:       cfg.RAGSystem.VectorDB.TimeAwareSearch.FreshDataDays,
		DecayFactor:     cfg.RAGSystem.VectorDB.TimeAwareSearch.TimeDecayFactor,
		EnableTimeBoost: cfg.RAGSystem.VectorDB.TimeAwareSearch.EnableTimeBoost,
	}
	retr := retriever.New(vecStore, retrieverCfg, logger)

	driver := browser.New(cfg, logger)
	if err := driver.Create(); err != nil {
		logger.Error("failed to start browser driver", map[string]interface{}{"error": err.Error()})
		return
	}
	defer driver.Quit()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		logger.Info("session store mirroring to redis", map[string]interface{}{"addr": cfg.Redis.URL})
	}
	sessions := session.New(cfg.Mode.SessionFile, cfg.Mode.SessionTimeout, redisClient, logger)

	loginCtl := login.New(cfg, driver, sessions, logger)
	solver := captcha.NewTwoCaptchaSolver(cfg)
	pipe := pipeline.New(cfg, driver, loginCtl, store, solver, logger)

	weights := scorer.Weights{
		Semantic:   cfg.ResumeMatchingAdvanced.MatchingWeights.SemanticSimilarity,
		Skills:     cfg.ResumeMatchingAdvanced.MatchingWeights.SkillsMatch,
		Experience: cfg.ResumeMatchingAdvanced.MatchingWeights.ExperienceMatch,
		Industry:   cfg.ResumeMatchingAdvanced.MatchingWeights.IndustryMatch,
		Salary:     cfg.ResumeMatchingAdvanced.MatchingWeights.SalaryMatch,
	}
	sc := scorer.New(weights, scorer.DefaultSkillTables())

	strategy := retriever.Strategy(cfg.ResumeMatchingAdvanced.TimeAwareMatching.Strategy)
	if strategy == "" {
		strategy = retriever.StrategyHybrid
	}
	m := matcher.New(retr, sc, store, logger, cfg.ResumeMatchingAdvanced.DefaultSearchK, cfg.ResumeMatchingAdvanced.MatchThresholds.Poor, strategy)

	// A default résumé registry is optional: auto-repair degrades to a
	// logged no-op without one (spec §9 open question, see DESIGN.md).
	var registry resume.Registry
	if cfg.ResumeMatching.DefaultProfilePath != "" {
		data, err := os.ReadFile(cfg.ResumeMatching.DefaultProfilePath)
		if err != nil {
			logger.Warn("failed to read default resume profile, auto-repair disabled", map[string]interface{}{"error": err.Error()})
		} else if profile, err := resume.Deserialize(data); err != nil {
			logger.Warn("failed to parse default resume profile, auto-repair disabled", map[string]interface{}{"error": err.Error()})
		} else {
			registry = resume.NewStaticRegistry(profile)
		}
	}

	mon := monitor.New(cfg, store, m, registry, logger)
	monitorCtx, cancelMonitor := context.WithCancel(context.Background())
	mon.Start(monitorCtx)
	defer cancelMonitor()

	e := echo.New()
	e.HideBanner = true
	routes.SetupRoutes(e, cfg, store, pipe, m, mon)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down http server", map[string]interface{}{"error": err.Error()})
		}
		mon.Stop()
		cancelMonitor()
		driver.Quit()
		logger.Info("shutdown complete")
	}()

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("listening", map[string]interface{}{"address": address})
	if err := e.Start(address); err != nil {
		logger.Info("server stopped", map[string]interface{}{"reason": err.Error()})
	}
}
