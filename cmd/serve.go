package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kindred-labs/kindred-cli/internal/model"
	"github.com/kindred-labs/kindred-cli/internal/seed"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the pipeline trigger surface over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

// scopeRequest is the body shared by the materialize and reconcile triggers.
type scopeRequest struct {
	SubjectIDs []int64 `json:"subject_ids,omitempty"`
}

// runRequest triggers the full seed → materialize → reconcile composition.
type runRequest struct {
	ScenarioPath string `json:"scenario_path,omitempty"`
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Inspection surface for the observation log: what has been
	// materialized and what is still waiting on reconciliation.
	r.Get("/observations", func(w http.ResponseWriter, req *http.Request) {
		obs, err := env.store.ListObservations(req.Context(), cfg.Pipeline.UserID)
		if err != nil {
			writeError(w, "list observations", err)
			return
		}
		if obs == nil {
			obs = []model.Observation{}
		}
		writeJSON(w, http.StatusOK, obs)
	})

	r.Post("/pipeline/materialize", func(w http.ResponseWriter, req *http.Request) {
		var body scopeRequest
		if !decodeBody(w, req, &body) {
			return
		}
		summary, err := env.pipe.Materialize(req.Context(), buildScope(body.SubjectIDs))
		if err != nil {
			writeError(w, "materialize", err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})

	r.Post("/pipeline/reconcile", func(w http.ResponseWriter, req *http.Request) {
		var body scopeRequest
		if !decodeBody(w, req, &body) {
			return
		}
		summary, err := env.pipe.Reconcile(req.Context(), buildScope(body.SubjectIDs))
		if err != nil {
			writeError(w, "reconcile", err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})

	r.Post("/pipeline/run", func(w http.ResponseWriter, req *http.Request) {
		var body runRequest
		if !decodeBody(w, req, &body) {
			return
		}

		sc := seed.DefaultScenario()
		if body.ScenarioPath != "" {
			loaded, err := seed.LoadScenario(body.ScenarioPath)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": eris.ToString(err, false)})
				return
			}
			sc = loaded
		}

		summary, err := env.pipe.RunAll(req.Context(), cfg.Pipeline.UserID, sc)
		if err != nil {
			writeError(w, "run all", err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})

	return r
}

// decodeBody parses an optional JSON body. An empty body is valid and leaves
// the target zeroed.
func decodeBody(w http.ResponseWriter, req *http.Request, v any) bool {
	err := json.NewDecoder(req.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, op string, err error) {
	zap.L().Error(op+" trigger failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": eris.ToString(err, false)})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
