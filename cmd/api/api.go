package main

import (
	"Tuner/internal/database"
	"Tuner/internal/models"
	"Tuner/internal/render"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

type App struct {
	Router    *mux.Router
	DBHandler models.DatabaseHandler
	Logger    *slog.Logger
}

func (a *App) Initialize(handler models.DatabaseHandler, logger *slog.Logger) {
	a.DBHandler = handler
	a.Logger = logger
	a.Router = mux.NewRouter()
	a.Router.StrictSlash(true)

	a.Router.HandleFunc("/brands", a.BrandsHandler).Methods("GET")
	a.Router.HandleFunc("/models", a.ModelsHandler).Methods("GET")
	a.Router.HandleFunc("/types", a.TypesHandler).Methods("GET")
	a.Router.HandleFunc("/engines", a.EnginesHandler).Methods("GET")
	a.Router.HandleFunc("/stages", a.StagesHandler).Methods("GET")
	a.Router.HandleFunc("/stages/{stageId:[0-9]+}/card", a.StageCardHandler).Methods("GET")
	a.Router.Use(contentTypeApplicationJsonMiddleware)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Handler:      a.Router,
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.Logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func contentTypeApplicationJsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// queryId reads a required numeric query parameter.
func queryId(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing query parameter %q", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be an integer", name)
	}
	return id, nil
}

func (a *App) respond(w http.ResponseWriter, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		a.Logger.Error("cannot marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (a *App) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	a.Logger.Warn("request failed", "path", r.URL.RequestURI(), "status", status, "error", err)
	w.WriteHeader(status)
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	w.Write(payload)
}

func (a *App) BrandsHandler(w http.ResponseWriter, r *http.Request) {
	brands, err := a.DBHandler.GetBrands()
	if err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	a.respond(w, brands)
}

func (a *App) ModelsHandler(w http.ResponseWriter, r *http.Request) {
	brandId, err := queryId(r, "brandId")
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, err)
		return
	}
	modelList, err := a.DBHandler.GetModelsForBrand(brandId)
	if err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	a.respond(w, modelList)
}

func (a *App) TypesHandler(w http.ResponseWriter, r *http.Request) {
	modelId, err := queryId(r, "modelId")
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, err)
		return
	}
	types, err := a.DBHandler.GetTypesForModel(modelId)
	if err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	a.respond(w, types)
}

func (a *App) EnginesHandler(w http.ResponseWriter, r *http.Request) {
	typeId, err := queryId(r, "typeId")
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, err)
		return
	}
	engines, err := a.DBHandler.GetEnginesForType(typeId)
	if err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	a.respond(w, engines)
}

func (a *App) StagesHandler(w http.ResponseWriter, r *http.Request) {
	engineId, err := queryId(r, "engineId")
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, err)
		return
	}
	stages, err := a.DBHandler.GetStagesForEngine(engineId)
	if err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	a.respond(w, stages)
}

func (a *App) StageCardHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	stageId, err := strconv.ParseInt(vars["stageId"], 10, 64)
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, err)
		return
	}
	stage, err := a.DBHandler.GetStage(stageId)
	if errors.Is(err, database.ErrNotFound) {
		a.fail(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	a.respond(w, render.Stage(stage))
}
