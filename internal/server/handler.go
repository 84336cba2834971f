package server

import (
	"errors"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/imagestore"
	"github.com/kilupskalvis/cocokit/internal/models"
	"github.com/kilupskalvis/cocokit/internal/store"
)

// RunLog is the part of the run store the server reads.
type RunLog interface {
	ListRuns(limit int) ([]*models.Run, error)
	GetRunByShortID(prefix string) (*models.Run, error)
}

// ServerConfig holds configurable limits for the server.
type ServerConfig struct {
	RequestsPerMinute int    // per-client rate limit, 0 disables
	Token             string // bearer token, empty disables auth
	MaxPageSize       int
}

// DefaultServerConfig returns reasonable defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		RequestsPerMinute: 600,
		MaxPageSize:       1000,
	}
}

// api carries the state shared by every handler. The dataset is only read.
type api struct {
	ds     *dataset.Dataset
	images imagestore.Store
	runs   RunLog
	cfg    *ServerConfig
	logger *slog.Logger
}

// Handler creates the HTTP handler with all routes and middleware. runs may
// be nil when no run log exists.
func Handler(ds *dataset.Dataset, images imagestore.Store, runs RunLog, cfg *ServerConfig, logger *slog.Logger) http.Handler {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &api{ds: ds, images: images, runs: runs, cfg: cfg, logger: logger}

	mws := []func(http.Handler) http.Handler{newHostLimiter(cfg.RequestsPerMinute).middleware}
	if cfg.Token != "" {
		mws = append([]func(http.Handler) http.Handler{tokenAuth(cfg.Token)}, mws...)
	}
	guarded := func(h http.HandlerFunc) http.Handler {
		return applyMiddleware(h, mws...)
	}

	mux := http.NewServeMux()

	// Health endpoints (no auth)
	mux.HandleFunc("GET /healthz", handleHealthz)

	mux.Handle("GET /api/v1/info", guarded(a.handleInfo))
	mux.Handle("GET /api/v1/categories", guarded(a.handleCategories))
	mux.Handle("GET /api/v1/images", guarded(a.handleListImages))
	mux.Handle("GET /api/v1/images/{id}", guarded(a.handleGetImage))
	mux.Handle("GET /api/v1/images/{id}/annotations", guarded(a.handleImageAnnotations))
	mux.Handle("GET /api/v1/images/{id}/mask", guarded(a.handleImageMask))
	mux.Handle("GET /api/v1/images/{id}/file", guarded(a.handleImageFile))
	mux.Handle("GET /api/v1/runs", guarded(a.handleListRuns))
	mux.Handle("GET /api/v1/runs/{id}", guarded(a.handleGetRun))

	// Request id first so the access log carries it.
	return applyMiddleware(mux, withRequestID, accessLog(logger))
}

// applyMiddleware applies middleware in reverse order so the first in the list runs first.
func applyMiddleware(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// --- Dataset Handlers ---

type infoResponse struct {
	dataset.Info
	Fingerprint      string      `json:"fingerprint"`
	AnnotationCounts map[int]int `json:"annotation_counts"`
}

func (a *api) handleInfo(w http.ResponseWriter, r *http.Request) {
	fp, err := a.ds.Fingerprint()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &infoResponse{
		Info:             a.ds.Describe(),
		Fingerprint:      fp,
		AnnotationCounts: a.ds.AnnotationCounts(),
	})
}

func (a *api) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.ds.Categories)
}

type imagePage struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Images []*models.Image `json:"images"`
}

func (a *api) handleListImages(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", a.cfg.MaxPageSize)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid limit")
		return
	}
	if a.cfg.MaxPageSize > 0 && limit > a.cfg.MaxPageSize {
		limit = a.cfg.MaxPageSize
	}

	total := len(a.ds.Images)
	page := imagePage{Total: total, Offset: offset, Images: []*models.Image{}}
	if offset < total {
		end := min(offset+limit, total)
		page.Images = a.ds.Images[offset:end]
	}
	writeJSON(w, http.StatusOK, &page)
}

func (a *api) handleGetImage(w http.ResponseWriter, r *http.Request) {
	img, ok := a.image(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (a *api) handleImageAnnotations(w http.ResponseWriter, r *http.Request) {
	img, ok := a.image(w, r)
	if !ok {
		return
	}
	cats, err := queryInts(r, "category")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	anns := a.ds.AnnotationsOf(img.ID, cats...)
	if anns == nil {
		anns = []*models.Annotation{}
	}
	writeJSON(w, http.StatusOK, anns)
}

// handleImageMask renders the image's annotations as a PNG. kind=union gives
// a binary mask, index the 1-based instance order, semantic the category ids.
func (a *api) handleImageMask(w http.ResponseWriter, r *http.Request) {
	img, ok := a.image(w, r)
	if !ok {
		return
	}
	cats, err := queryInts(r, "category")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	width, height := img.Width, img.Height
	if width <= 0 || height <= 0 {
		width, height, err = a.images.Size(r.Context(), a.ds.ImagePath(img))
		if err != nil {
			a.writeStoreError(w, err)
			return
		}
	}

	anns := a.ds.AnnotationsOf(img.ID, cats...)
	var out image.Image
	switch kind := r.URL.Query().Get("kind"); kind {
	case "", "union":
		m, err := dataset.UnionMask(anns, height, width)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "bad_geometry", err.Error())
			return
		}
		out = m.Gray(255)
	case "index":
		lm, err := dataset.InstanceIndexMap(anns, height, width)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "bad_geometry", err.Error())
			return
		}
		out = lm.Gray16()
	case "semantic":
		lm, err := dataset.SemanticMap(anns, height, width)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "bad_geometry", err.Error())
			return
		}
		out = lm.Gray16()
	default:
		writeError(w, http.StatusBadRequest, "bad_request", "unknown mask kind '"+kind+"'")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if err := png.Encode(w, out); err != nil {
		a.logger.Warn("encode mask", "error", err, "image_id", img.ID)
	}
}

func (a *api) handleImageFile(w http.ResponseWriter, r *http.Request) {
	img, ok := a.image(w, r)
	if !ok {
		return
	}
	data, err := a.images.ReadFile(r.Context(), a.ds.ImagePath(img))
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// image resolves the {id} path value, writing the error response itself.
func (a *api) image(w http.ResponseWriter, r *http.Request) (*models.Image, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "image id must be an integer")
		return nil, false
	}
	img, err := a.ds.Image(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return nil, false
	}
	return img, true
}

func (a *api) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, imagestore.ErrImageNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}

// --- Run Handlers ---

func (a *api) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if a.runs == nil {
		writeJSON(w, http.StatusOK, []*models.Run{})
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid limit")
		return
	}
	runs, err := a.runs.ListRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *api) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if a.runs == nil {
		writeError(w, http.StatusNotFound, "not_found", "no run log")
		return
	}
	run, err := a.runs.GetRunByShortID(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// --- Health Handlers ---

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// queryInts parses a comma-separated list such as ?category=1,3.
func queryInts(r *http.Request, key string) ([]int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.New("invalid " + key + " '" + part + "'")
		}
		out = append(out, n)
	}
	return out, nil
}
