package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-sms/internal/model"
	"github.com/sells-group/lead-sms/internal/qualify"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SMS webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
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
			Handler:           newRouter(env.Processor),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// telnyxWebhook is the inbound message envelope Telnyx posts to us.
type telnyxWebhook struct {
	Data struct {
		EventType string `json:"event_type"`
		Payload   struct {
			From struct {
				PhoneNumber string `json:"phone_number"`
			} `json:"from"`
			Text string `json:"text"`
		} `json:"payload"`
	} `json:"data"`
}

func newRouter(processor *qualify.Processor) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/webhook/sms", func(w http.ResponseWriter, req *http.Request) {
		var hook telnyxWebhook
		if err := json.NewDecoder(req.Body).Decode(&hook); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		// Telnyx also posts delivery receipts; only inbound messages matter.
		if hook.Data.EventType != "message.received" {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}

		phone := hook.Data.Payload.From.PhoneNumber
		text := hook.Data.Payload.Text
		if phone == "" || text == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing phone or text"})
			return
		}

		res, err := processor.ProcessMessage(req.Context(), phone, text, time.Now().UTC())
		if err != nil {
			if errors.Is(err, model.ErrInvalidPhone) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid phone number"})
				return
			}
			zap.L().Error("webhook processing failed",
				zap.String("phone", phone),
				zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "processed",
			"phase":      string(res.Phase),
			"paused":     res.Paused,
			"tour_ready": res.Lead.TourReady,
		})
	})

	r.Post("/outreach", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Phone string `json:"phone"`
			Name  string `json:"name"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Phone == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "phone is required"})
			return
		}

		lead, err := processor.StartOutreach(req.Context(), body.Phone, body.Name, time.Now().UTC())
		if err != nil {
			if errors.Is(err, model.ErrInvalidPhone) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid phone number"})
				return
			}
			zap.L().Error("outreach failed", zap.String("phone", body.Phone), zap.Error(err))
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{
			"status": "started",
			"phone":  lead.Phone,
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
