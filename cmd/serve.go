package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local debug API for the food engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eng := newEngine()
		defer eng.Close()

		limiter := rate.NewLimiter(rate.Limit(cfg.Serve.RateLimit), cfg.Serve.RateBurst)

		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet},
		}))
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if !limiter.Allow() {
					http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
					return
				}
				next.ServeHTTP(w, req)
			})
		})

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/search", func(w http.ResponseWriter, req *http.Request) {
			query := req.URL.Query().Get("q")
			if query == "" {
				http.Error(w, `{"error":"q is required"}`, http.StatusBadRequest)
				return
			}
			limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

			search := eng.Search
			if req.URL.Query().Get("deep") == "1" {
				search = eng.DeepSearch
			}

			results, err := search(req.Context(), query, limit)
			if err != nil {
				http.Error(w, `{"error":"engine unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, http.StatusOK, results)
		})

		r.Get("/barcode/{code}", func(w http.ResponseWriter, req *http.Request) {
			result, err := eng.SearchByBarcode(req.Context(), chi.URLParam(req, "code"))
			if err != nil {
				http.Error(w, `{"error":"engine unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			if result == nil {
				http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, result)
		})

		r.Get("/foods/{id}", func(w http.ResponseWriter, req *http.Request) {
			result, err := eng.SearchByID(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				http.Error(w, `{"error":"engine unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			if result == nil {
				http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, result)
		})

		r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
			st, err := eng.Stats(req.Context())
			if err != nil {
				http.Error(w, `{"error":"engine unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, http.StatusOK, st)
		})

		port := servePort
		if port == 0 {
			port = cfg.Serve.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Close()
		}()

		zap.L().Info("debug API listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
