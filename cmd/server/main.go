package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/defectscope/annotator/internal/account"
	"github.com/defectscope/annotator/internal/annotation"
	"github.com/defectscope/annotator/internal/asset"
	"github.com/defectscope/annotator/internal/auth"
	"github.com/defectscope/annotator/internal/collab"
	"github.com/defectscope/annotator/internal/config"
	"github.com/defectscope/annotator/internal/db"
	"github.com/defectscope/annotator/internal/db/dbgen"
	"github.com/defectscope/annotator/internal/defects"
	"github.com/defectscope/annotator/internal/editor"
	"github.com/defectscope/annotator/internal/export"
	"github.com/defectscope/annotator/internal/legend"
	mw "github.com/defectscope/annotator/internal/middleware"
	"github.com/defectscope/annotator/internal/render"
	"github.com/defectscope/annotator/internal/report"
	"github.com/defectscope/annotator/internal/session"
	"github.com/defectscope/annotator/internal/typeid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	queries := dbgen.New(pool)
	sessions := session.NewPostgresStore(queries)

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	accountService := account.NewService(queries, sessions, cfg.ReportPublicURL)
	accountHandler := account.NewHandler(accountService, sessions)
	accountHandler.ImageURL = asset.URL

	images, err := asset.NewStore(cfg.AssetDir)
	if err != nil {
		slog.Error("open image store", "error", err)
		os.Exit(1)
	}
	assetHandler := asset.NewHandler(images, accountService, sessions)

	detector := defects.New(cfg.DetectorURL, cfg.HTTPTimeout)
	if err := detector.CheckHealth(ctx); err != nil {
		slog.Warn("detection service not reachable, editors will start empty", "error", err, "url", cfg.DetectorURL)
	}
	reports := report.New(cfg.ReportURL, cfg.HTTPTimeout)

	reducer := annotation.Reducer{NewID: typeid.NewRectID, MinExtent: cfg.MinRectExtent}
	flatten := render.FlattenOptions{StrokeWidth: int(render.RectStrokeWidth), Labels: cfg.RenderLabels}

	// Opens an editor on the user's current image for the collaboration hub
	newEditor := func(ctx context.Context, userID string) (*editor.Session, error) {
		sc, err := sessions.Load(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load host session: %w", err)
		}
		if !sc.HasImage() {
			return nil, collab.ErrNoEditor
		}
		img, err := images.Open(sc.UploadedImagePath)
		if err != nil {
			return nil, fmt.Errorf("open image %s: %w", sc.UploadedImagePath, err)
		}
		return editor.New(editor.Options{
			UserID:         userID,
			ImageName:      sc.UploadedImagePath,
			ImageURL:       asset.URL(sc.UploadedImagePath),
			Image:          img,
			Defects:        detector,
			Reports:        reports,
			Sessions:       sessions,
			OnReport:       accountService.RecordReport,
			Reducer:        reducer,
			Flatten:        flatten,
			MinReportBytes: cfg.MinReportBytes,
			Logger:         slog.Default(),
		}), nil
	}

	hub := collab.NewHub(newEditor, slog.Default())
	go hub.Run()
	assetHandler.OnUpload = hub.Reopen

	exportHandler := export.NewHandler(hub)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Class colours and names for the palette
	r.HandleFunc("/legend", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"version": legend.Version,
			"classes": legend.All(),
		})
	}).Methods("GET")

	r.PathPrefix("/images/").Handler(assetHandler.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/users", accountHandler.List).Methods("GET")
	api.HandleFunc("/users/{userId}", accountHandler.Get).Methods("GET")
	api.HandleFunc("/me", accountHandler.Me).Methods("GET")
	api.HandleFunc("/me", accountHandler.DeleteMe).Methods("DELETE")
	api.HandleFunc("/reports", accountHandler.Reports).Methods("GET")
	api.HandleFunc("/session", accountHandler.GetSession).Methods("GET")
	api.HandleFunc("/session", accountHandler.ClearSession).Methods("DELETE")
	api.HandleFunc("/images", assetHandler.Upload).Methods("POST")
	api.HandleFunc("/editor/export", exportHandler.ExportPNG).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws/editor", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, cfg.OriginPatterns())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Close editors first so late service replies are dropped
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "detector", cfg.DetectorURL, "reports", cfg.ReportURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, origins []string) {
	userID, err := authSvc.UserFromRequest(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, userID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
