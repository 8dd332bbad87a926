package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/foomo/funnelstore/pkg/metrics"
	"github.com/foomo/funnelstore/pkg/snapshot"
	"github.com/foomo/funnelstore/requests"
	"github.com/foomo/funnelstore/responses"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultMaxBodySize = 10 << 20

type (
	HTTP struct {
		l           *zap.Logger
		basePath    string
		maxBodySize int64
		manager     *snapshot.Manager
		auth        Authenticator
		router      chi.Router
	}
	HTTPOption func(*HTTP)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// NewHTTP returns the handler serving <basePath>/data
func NewHTTP(l *zap.Logger, manager *snapshot.Manager, opts ...HTTPOption) http.Handler {
	inst := &HTTP{
		l:           l.Named("http"),
		basePath:    "/api",
		maxBodySize: defaultMaxBodySize,
		manager:     manager,
		auth:        NewBearerAuthenticator(""),
	}

	for _, opt := range opts {
		opt(inst)
	}

	r := chi.NewRouter()
	r.Get(inst.basePath+"/data", inst.get)
	r.Post(inst.basePath+"/data", inst.post)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		inst.writeError(w, responses.NewError(http.StatusMethodNotAllowed, "Method not allowed"))
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		inst.writeError(w, responses.NewError(http.StatusNotFound, "Not found"))
	})
	inst.router = r

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithBasePath(v string) HTTPOption {
	return func(o *HTTP) {
		o.basePath = v
	}
}

func WithAuthenticator(v Authenticator) HTTPOption {
	return func(o *HTTP) {
		o.auth = v
	}
}

func WithMaxBodySize(v int64) HTTPOption {
	return func(o *HTTP) {
		o.maxBodySize = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (h *HTTP) get(w http.ResponseWriter, r *http.Request) {
	var (
		start  = time.Now()
		ctx    = r.Context()
		action = requests.Action(r.URL.Query().Get("action"))
	)

	// public view for third party pages
	if action == requests.ActionEmbed {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		h.writeDocument(w, h.manager.Current(ctx))
		h.observe(action, http.StatusOK, start)
		return
	}

	if !h.auth.Authorized(r) {
		h.unauthorized(w, action, start)
		return
	}

	var err error
	switch action {
	case requests.ActionCurrent:
		h.writeDocument(w, h.manager.Current(ctx))
	case requests.ActionBackups:
		var backups []snapshot.Backup
		if backups, err = h.manager.Backups(ctx); err == nil {
			h.writeJSON(w, http.StatusOK, &responses.Backups{Backups: backups})
		}
	case requests.ActionRestore:
		var doc snapshot.Document
		if doc, err = h.manager.Restore(ctx, r.URL.Query().Get("key")); err == nil {
			h.writeDocument(w, doc)
		}
	default:
		err = responses.NewError(http.StatusBadRequest, "Unknown action")
	}

	h.finish(w, h.l, action, err, start)
}

func (h *HTTP) post(w http.ResponseWriter, r *http.Request) {
	var (
		start = time.Now()
		ctx   = r.Context()
		l     = h.l.With(zap.String("request_id", uuid.New().String()))
	)

	if !h.auth.Authorized(r) {
		h.unauthorized(w, actionWrite, start)
		return
	}

	req := &requests.Write{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodySize)).Decode(req); err != nil {
		l.Debug("could not read incoming json", zap.Error(err))
		h.finish(w, l, actionWrite, responses.NewError(http.StatusBadRequest, "Invalid request body"), start)
		return
	}

	var (
		commit snapshot.Commit
		err    error
	)
	switch req.Action {
	case requests.ActionSave:
		commit, err = h.manager.Save(ctx, req.Data)
	case requests.ActionImport:
		commit, err = h.manager.Import(ctx, req.Data)
	default:
		err = responses.NewError(http.StatusBadRequest, "Unknown action")
	}
	if err == nil {
		l.Info("document written", zap.String("action", string(req.Action)))
		h.writeJSON(w, http.StatusOK, responses.NewCommit(commit))
	}

	h.finish(w, l, req.Action, err, start)
}

func (h *HTTP) unauthorized(w http.ResponseWriter, action requests.Action, start time.Time) {
	metrics.UnauthorizedRequestCounter.WithLabelValues(actionLabel(action)).Inc()
	h.writeError(w, responses.NewError(http.StatusUnauthorized, "Unauthorized"))
	h.observe(action, http.StatusUnauthorized, start)
}

// finish writes the error response, if any, and records the request.
func (h *HTTP) finish(w http.ResponseWriter, l *zap.Logger, action requests.Action, err error, start time.Time) {
	status := http.StatusOK
	if err != nil {
		respErr := classify(err)
		status = respErr.Status
		if status >= http.StatusInternalServerError {
			l.Error("request failed", zap.String("action", actionLabel(action)), zap.Error(err))
		} else {
			l.Debug("request rejected", zap.String("action", actionLabel(action)), zap.Error(err))
		}
		h.writeError(w, respErr)
	}
	h.observe(action, status, start)
}

func (h *HTTP) observe(action requests.Action, status int, start time.Time) {
	a, s := actionLabel(action), strconv.Itoa(status)
	metrics.ServiceRequestCounter.WithLabelValues(a, s).Inc()
	metrics.ServiceRequestDuration.WithLabelValues(a, s).Observe(time.Since(start).Seconds())
}

func (h *HTTP) writeDocument(w http.ResponseWriter, doc snapshot.Document) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		h.l.Debug("failed to write document", zap.Error(err))
	}
}

func (h *HTTP) writeError(w http.ResponseWriter, err *responses.Error) {
	h.writeJSON(w, err.Status, err)
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.l.Error("could not encode reply", zap.Error(err))
		status = http.StatusInternalServerError
		data = []byte(`{"error":"Server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// classify maps an error onto its response, once, at the boundary.
func classify(err error) *responses.Error {
	var respErr *responses.Error
	switch {
	case errors.As(err, &respErr):
		return respErr
	case errors.Is(err, snapshot.ErrMissingKey):
		return responses.NewError(http.StatusBadRequest, "Missing backup key")
	case errors.Is(err, snapshot.ErrMissingDocument):
		return responses.NewError(http.StatusBadRequest, "Missing data")
	case errors.Is(err, snapshot.ErrBackupNotFound):
		return responses.NewError(http.StatusNotFound, "Backup not found")
	default:
		return responses.NewError(http.StatusInternalServerError, "Server error: "+err.Error())
	}
}

// actionWrite labels posts whose action is not known yet
const actionWrite requests.Action = "write"

// actionLabel keeps the metric label cardinality bounded
func actionLabel(action requests.Action) string {
	switch action {
	case requests.ActionCurrent:
		return "current"
	case requests.ActionEmbed, requests.ActionBackups, requests.ActionRestore,
		requests.ActionSave, requests.ActionImport, actionWrite:
		return string(action)
	default:
		return "unknown"
	}
}
