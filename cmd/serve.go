package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/verimeet/verimeet/config"
	"github.com/verimeet/verimeet/pkg/agent"
	"github.com/verimeet/verimeet/pkg/analysis/facts"
	"github.com/verimeet/verimeet/pkg/analysis/intents"
	"github.com/verimeet/verimeet/pkg/analysis/summary"
	"github.com/verimeet/verimeet/pkg/events"
	"github.com/verimeet/verimeet/pkg/integrations/gcal"
	"github.com/verimeet/verimeet/pkg/integrations/gmail"
	"github.com/verimeet/verimeet/pkg/integrations/meetstream"
	"github.com/verimeet/verimeet/pkg/integrations/notion"
	"github.com/verimeet/verimeet/pkg/integrations/websearch"
	"github.com/verimeet/verimeet/pkg/llm"
	"github.com/verimeet/verimeet/pkg/logging"
	"github.com/verimeet/verimeet/pkg/observability"
	"github.com/verimeet/verimeet/pkg/server"
)

// NewServeCommand creates the serve command, which runs the meeting
// assistant server until interrupted.
func NewServeCommand() *cobra.Command {
	var (
		host     string
		port     int
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the meeting assistant server",
		Long: `Run the VeriMeet server: receives meeting webhooks, analyzes
transcripts for factual claims and actionable intents, maintains rolling
summaries, and archives meetings when they end.

Requires at minimum an OpenAI API key, a Meetstream API key, and a public
URL for webhook callbacks. Web search, calendar, email, and Notion
integrations activate automatically when their credentials are present.

Examples:
  verimeet serve
  verimeet serve --port 9000 --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			cfg.Finalize()
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "bind address (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	return cmd
}

func runServe(ctx context.Context, cfg *config.AppConfig) error {
	log := logging.NewLogger(&logging.Config{
		Level:       logging.Level(cfg.Logging.Level),
		ServiceName: "verimeet",
		JSONFormat:  cfg.Logging.JSON,
	})

	provider, err := llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating language model provider: %w", err)
	}
	defer provider.Close()

	metrics := observability.Default()
	provider.SetMetrics(metrics)

	hub := server.NewHub(log)
	publisher := events.Publisher(hub)

	var redisPub *events.RedisPublisher
	if cfg.Redis.Enabled {
		redisPub = events.NewRedisPublisher(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisPub.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable, events will be dropped",
				logging.F("addr", cfg.Redis.Addr), logging.Err(err))
		}
		cancel()
		publisher = events.Multi{hub, redisPub}
	}

	opts := []agent.Option{
		agent.WithPublisher(publisher),
		agent.WithMetrics(metrics),
	}

	bots := meetstream.NewClient(cfg.Meetstream, log)
	opts = append(opts, agent.WithChat(bots))

	if search := websearch.NewClient(cfg.Search, log); search.IsConfigured() {
		opts = append(opts, agent.WithVerifier(search))
		log.Info("fact verification enabled", logging.F("provider", search.Provider()))
	} else {
		log.Warn("no search provider configured, facts will not be verified")
	}

	if calendar := gcal.NewClient(cfg.Calendar, log); calendar.IsConfigured() {
		opts = append(opts, agent.WithCalendar(calendar))
	}
	if email := gmail.NewClient(cfg.Gmail, log); email.IsConfigured() {
		opts = append(opts, agent.WithEmail(email, cfg.Recipients))
	}
	if pages := notion.NewClient(cfg.Notion, log); pages.IsConfigured() {
		opts = append(opts, agent.WithPages(pages))
	}

	checker := facts.NewChecker(provider, log)
	parser := intents.NewParser(provider, log)
	summarizer := summary.NewSummarizer(provider, log)
	a := agent.New(checker, parser, summarizer, log, opts...)

	srv := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		AllowOrigins: cfg.Server.AllowOrigins,
	}, a, bots, hub, log)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = srv.Run(runCtx)
	if redisPub != nil {
		if closeErr := redisPub.Close(); closeErr != nil {
			log.Warn("closing redis publisher", logging.Err(closeErr))
		}
	}
	return err
}
