// Command anloader serves the host-facing surface of the ActionNetwork
// contact loader: list choices for the campaign admin picker and load
// triggers from the host job queue.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/civicworks/actionnetwork-loader/internal/store"
	"github.com/civicworks/actionnetwork-loader/pkg/cache"
	"github.com/civicworks/actionnetwork-loader/pkg/client"
	"github.com/civicworks/actionnetwork-loader/pkg/config"
	"github.com/civicworks/actionnetwork-loader/pkg/contacts"
	"github.com/civicworks/actionnetwork-loader/pkg/loader"
	"github.com/civicworks/actionnetwork-loader/pkg/logging"
	"github.com/civicworks/actionnetwork-loader/pkg/pagination"
)

var (
	addr     string
	redisURL string
	pgDSN    string
	logLevel string
	pretty   bool
)

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}

func execute() error {
	root := &cobra.Command{
		Use:   "anloader",
		Short: "ActionNetwork contact loader service",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the choices and load endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	serve.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serve.Flags().StringVar(&redisURL, "redis", "localhost:6379", "redis address for the choice cache")
	serve.Flags().StringVar(&pgDSN, "pg", "", "postgres DSN for the contact store")
	serve.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	serve.Flags().BoolVar(&pretty, "pretty", false, "human-readable log output")

	root.AddCommand(serve)
	return root.Execute()
}

func runServe() error {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Pretty: pretty,
		Output: os.Stderr,
	})

	ctx := context.Background()

	provider, err := config.NewProvider()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error().Err(err).Str("redis", redisURL).Msg("Failed to connect to Redis")
		return err
	}
	choiceCache := cache.NewManager(redisClient)

	if pgDSN == "" {
		pgDSN = os.Getenv("DATABASE_URL")
	}
	pool, err := pgxpool.New(ctx, pgDSN)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to Postgres")
		return err
	}
	defer pool.Close()

	anClient, err := client.New(client.Config{Credentials: provider})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create upstream client")
		return err
	}

	paginator := pagination.New(anClient, pagination.DefaultConfig())
	resolver := contacts.NewResolver(paginator, anClient, contacts.ZipPrefixTimezone{})

	orchestrator, err := loader.New(loader.Config{
		Resolver: resolver,
		Lists:    paginator,
		Store:    store.NewContactStore(pool),
		Notifier: logNotifier{logger: logger},
		TTL:      provider,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create orchestrator")
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/choices", choicesHandler(orchestrator, choiceCache, logger))
	mux.HandleFunc("/load", loadHandler(orchestrator, logger))

	logger.Info().
		Str("addr", addr).
		Str("loader", loader.Name).
		Msg("Starting loader service")

	return http.ListenAndServe(addr, mux)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// choicesHandler serves the client-choice payload, backed by the Redis
// cache so repeated picker loads do not re-crawl the upstream lists.
func choicesHandler(orch *loader.Orchestrator, choiceCache *cache.Manager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		organization := r.URL.Query().Get("organization")
		key := cache.Key{
			Organization: organization,
			CampaignID:   r.URL.Query().Get("campaign"),
		}

		if entry, err := choiceCache.Get(r.Context(), key); err == nil {
			writeJSON(w, loader.ChoiceData{
				Data:           string(entry.Data),
				ExpiresSeconds: int(entry.TTL().Seconds()),
			})
			return
		} else if err != cache.ErrCacheMiss {
			logger.Warn().Err(err).Msg("Choice cache read failed")
		}

		choices := orch.ClientChoiceData(r.Context(), organization)

		if choices.ExpiresSeconds > 0 {
			ttl := time.Duration(choices.ExpiresSeconds) * time.Second
			if err := choiceCache.Set(r.Context(), key, []byte(choices.Data), ttl); err != nil {
				logger.Warn().Err(err).Msg("Choice cache write failed")
			}
		}

		writeJSON(w, choices)
	}
}

// loadRequest is the host job queue's trigger payload.
type loadRequest struct {
	JobID        string `json:"jobId"`
	CampaignID   string `json:"campaignId"`
	Payload      string `json:"payload"`
	MaxContacts  int    `json:"maxContacts"`
	Organization string `json:"organization"`
}

// loadHandler accepts a load trigger and runs it asynchronously; the
// outcome is reported through the job notifier, not this response.
func loadHandler(orch *loader.Orchestrator, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req loadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
			return
		}

		job := loader.Job{
			ID:         req.JobID,
			CampaignID: req.CampaignID,
			Payload:    req.Payload,
		}

		go func() {
			// Loads run to completion; there is no mid-run abort, so
			// detach from the request context.
			if err := orch.Load(context.Background(), job, req.MaxContacts, req.Organization); err != nil {
				logger.Error().Err(err).Str("job_id", job.ID).Msg("Load failed")
			}
		}()

		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, `{"accepted": true}`)
	}
}

// logNotifier records completions. The host job system integrates here
// by swapping in its own notifier.
type logNotifier struct {
	logger zerolog.Logger
}

func (n logNotifier) CompleteLoad(ctx context.Context, job loader.Job, loadErr error, requestedCount string, resultJSON string) error {
	event := n.logger.Info()
	if loadErr != nil {
		event = n.logger.Error().Err(loadErr)
	}
	event.
		Str("job_id", job.ID).
		Str("campaign_id", job.CampaignID).
		Str("requested", requestedCount).
		Str("result", resultJSON).
		Msg("Load completion")
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}
