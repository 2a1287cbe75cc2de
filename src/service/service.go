package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"git.thicket.social/thicket/thicket/src/config"
	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/hooks"
	"git.thicket.social/thicket/thicket/src/itemdata"
	"git.thicket.social/thicket/thicket/src/jobs"
	"git.thicket.social/thicket/thicket/src/logging"
	"git.thicket.social/thicket/thicket/src/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var ServiceCommand = &cobra.Command{
	Short: "Run the Thicket ingestion service",
	Run: func(cmd *cobra.Command, args []string) {
		defer logging.LogPanics(nil)
		logging.Info().Msg("Hello, Thicket!")

		var wg sync.WaitGroup

		conn := db.NewConnPool()
		pipeline := itemdata.NewPipeline(conn, &config.Config, hooks.NewRegistry())

		// Start background jobs
		wg.Add(1)
		backgroundJobs := jobs.Jobs{
			itemdata.RunSpoolReplay(pipeline),
		}

		// Create HTTP server
		wg.Add(1)
		server := http.Server{
			Addr:    config.Config.Addr,
			Handler: newRoutes(pipeline),
		}
		go func() {
			logging.Info().Str("addr", config.Config.Addr).Msg("Serving the ingestion API")
			serverErr := server.ListenAndServe()
			if !errors.Is(serverErr, http.ErrServerClosed) {
				logging.Error().Err(serverErr).Msg("Server shut down unexpectedly")
			}
			// The wg.Done() happens in the shutdown logic below.
		}()

		// Wait for SIGINT in the background and trigger graceful shutdown
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		go func() {
			<-signals // First SIGINT (start shutdown)
			logging.Info().Msg("Shutting down the ingestion service")

			const timeout = 10 * time.Second

			go func() {
				logging.Info().Msg("Shutting down background jobs...")
				unfinished := backgroundJobs.CancelAndWait(timeout)
				if len(unfinished) == 0 {
					logging.Info().Msg("Background jobs closed gracefully")
				} else {
					logging.Warn().Strs("Unfinished", unfinished).Msg("Background jobs did not finish by the deadline")
				}
				wg.Done()
			}()

			go func() {
				timeoutCtx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()
				err := server.Shutdown(timeoutCtx)
				if err != nil {
					logging.Warn().Err(err).Msg("Server did not shut down gracefully")
				}
				wg.Done()
			}()

			<-signals // Second SIGINT (force quit)
			logging.Warn().Strs("Unfinished background jobs", backgroundJobs.ListUnfinished()).Msg("Forcibly killed the service")
			os.Exit(1)
		}()

		wg.Wait()
	},
}

func init() {
	spoolRetryCommand := &cobra.Command{
		Use:   "spool-retry",
		Short: "Replay spooled items through the ingestion pipeline once",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			pipeline := itemdata.NewPipeline(conn, &config.Config, hooks.NewRegistry())
			cleared, err := pipeline.ReplaySpool(ctx)
			if err != nil {
				logging.Error().Err(err).Msg("Spool replay failed")
				os.Exit(1)
			}
			logging.Info().Int("cleared", cleared).Msg("Spool replay finished")
		},
	}
	ServiceCommand.AddCommand(spoolRetryCommand)
}

func newRoutes(pipeline *itemdata.Pipeline) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/item", func(w http.ResponseWriter, r *http.Request) {
		handleIngest(pipeline, w, r)
	})
	return mux
}

type ingestResponse struct {
	Status string `json:"status"`
	ID     int    `json:"id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// handleIngest is the HTTP boundary for protocol adapters that do not link
// this engine directly. One normalized record in, one outcome out; the
// pipeline itself never fails the request.
func handleIngest(pipeline *itemdata.Pipeline, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var rec models.ItemRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "malformed item record", http.StatusBadRequest)
		return
	}

	res := pipeline.Insert(r.Context(), &rec)

	var status string
	code := http.StatusOK
	switch res.Status {
	case itemdata.StatusStored:
		status = "stored"
		code = http.StatusCreated
	case itemdata.StatusDuplicate:
		status = "duplicate"
	case itemdata.StatusRejected:
		status = "rejected"
	case itemdata.StatusSpooled:
		status = "spooled"
		code = http.StatusAccepted
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ingestResponse{
		Status: status,
		ID:     res.ID,
		Reason: res.Reason,
	})
}
