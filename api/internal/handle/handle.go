package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"paddy-doctor/api/internal/pipeline"
	"paddy-doctor/api/internal/present"
)

type Handle struct {
	pipe      *pipeline.Pipeline
	pres      *present.Presenter
	engines   []string
	defEngine string
	maxUpload int64
	ping      func(ctx context.Context) error
	audit     AuditLog
}

type Options struct {
	Engines        []string // показываются в форме
	DefaultEngine  string
	MaxUploadBytes int64
	Ping           func(ctx context.Context) error // optional DB health check
	Audit          AuditLog                        // nil when the journal is disabled
}

func New(pipe *pipeline.Pipeline, opt Options) *Handle {
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = 10 << 20
	}
	return &Handle{
		pipe:      pipe,
		pres:      present.New(),
		engines:   opt.Engines,
		defEngine: opt.DefaultEngine,
		maxUpload: opt.MaxUploadBytes,
		ping:      opt.Ping,
		audit:     opt.Audit,
	}
}

// Routes registers every endpoint on a gorilla/mux router.
func (h *Handle) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/classify", h.Classify).Methods(http.MethodPost)
	r.HandleFunc("/v1/classify", h.ClassifyJSON).Methods(http.MethodPost)
	r.HandleFunc("/v1/submissions/{id}", h.Submission).Methods(http.MethodGet)
	r.HandleFunc("/v1/stats", h.Stats).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	return r
}

func (h *Handle) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// requestContext: дедлайн из X-Request-Timeout или ?timeoutSec, по умолчанию 180 с.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	deadline := 180 * time.Second
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	return context.WithTimeout(r.Context(), deadline)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
