package servicerecords

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sysaid-bridge/lib/scrapers/sysaid"
)

const (
	rootMessage       = "¡Servidor funcionando!"
	extractionFailure = "Error al obtener los registros de servicio de SysAid"

	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

type Extractor interface {
	Run(ctx context.Context, creds sysaid.Credentials) ([]ProjectedRecord, error)
}

type RunHistory interface {
	Recent(ctx context.Context, limit int) ([]RunSummary, error)
}

type Handler struct {
	extractor Extractor
	creds     sysaid.Credentials
	history   RunHistory
}

// NewHandler serves extractions with the configured credentials, history
// may be nil in which case the runs endpoint responds 404.
func NewHandler(extractor Extractor, creds sysaid.Credentials, history RunHistory) Handler {
	return Handler{
		extractor: extractor,
		creds:     creds,
		history:   history,
	}
}

func (h Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.serveRoot)
	mux.HandleFunc("GET /api/sysaid/sr", h.serveRecords)
	mux.HandleFunc("GET /api/sysaid/runs", h.serveRuns)
}

func writeJson(ctx context.Context, w http.ResponseWriter, status int, value any) {
	body, err := json.Marshal(value)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write(body)
	if err != nil {
		slog.DebugContext(ctx, "failed to write response", "err", err)
	}
}

func (h Handler) serveRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	fmt.Fprint(w, rootMessage)
}

// the response never carries failure detail, it only goes to the log.
func (h Handler) serveRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.extractor.Run(ctx, h.creds)
	if err != nil {
		slog.ErrorContext(ctx, "failed to serve service records", "err", err)
		writeJson(ctx, w, http.StatusInternalServerError, map[string]string{
			"error": extractionFailure,
		})
		return
	}
	if records == nil {
		records = []ProjectedRecord{}
	}
	writeJson(ctx, w, http.StatusOK, records)
}

func (h Handler) serveRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.history == nil {
		http.NotFound(w, r)
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJson(ctx, w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = min(parsed, maxRunsLimit)
	}

	runs, err := h.history.Recent(ctx, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read run history", "err", err)
		writeJson(ctx, w, http.StatusInternalServerError, map[string]string{
			"error": "failed to read run history",
		})
		return
	}
	if runs == nil {
		runs = []RunSummary{}
	}
	writeJson(ctx, w, http.StatusOK, runs)
}
