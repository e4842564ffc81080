package api

import (
	"net/http"
	"strconv"

	"github.com/apnisec/issuetracker/pkg/httputil"
	"github.com/apnisec/issuetracker/pkg/issues"
	"github.com/apnisec/issuetracker/pkg/middleware"
	"github.com/apnisec/issuetracker/pkg/notify"
	"github.com/apnisec/issuetracker/pkg/observability"
	"github.com/gorilla/mux"
)

// IssueHandlers handles the /api/posts issue endpoints
type IssueHandlers struct {
	store       issues.Store
	notifier    notify.Notifier
	metrics     *observability.Metrics
	requireAuth *middleware.AuthMiddleware
	rateLimit   *middleware.RateLimitMiddleware
}

// NewIssueHandlers creates a new issue handlers instance
func NewIssueHandlers(store issues.Store, notifier notify.Notifier, metrics *observability.Metrics, requireAuth *middleware.AuthMiddleware, rateLimit *middleware.RateLimitMiddleware) *IssueHandlers {
	return &IssueHandlers{
		store:       store,
		notifier:    notifier,
		metrics:     metrics,
		requireAuth: requireAuth,
		rateLimit:   rateLimit,
	}
}

// RegisterRoutes registers issue routes under /api
func (h *IssueHandlers) RegisterRoutes(router *mux.Router) {
	router.Handle("/posts", h.rateLimit.Handler(h.requireAuth.HandlerWhen(ownerScoped, http.HandlerFunc(h.listIssues)))).Methods("GET")
	router.Handle("/posts", h.requireAuth.Handler(http.HandlerFunc(h.createIssue))).Methods("POST")
	router.Handle("/posts/{id:[0-9]+}", h.requireAuth.Handler(http.HandlerFunc(h.getIssue))).Methods("GET")
	router.Handle("/posts/{id:[0-9]+}", h.requireAuth.Handler(http.HandlerFunc(h.updateIssue))).Methods("PUT")
	router.Handle("/posts/{id:[0-9]+}", h.requireAuth.Handler(http.HandlerFunc(h.deleteIssue))).Methods("DELETE")
}

// listIssues handles GET /api/posts. Query modes, first match wins:
// start+end (page), email (owner, must be the caller), type, otherwise all.
func (h *IssueHandlers) listIssues(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}

	list, err := h.store.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*issues.Issue{}
	}

	httputil.WriteSuccess(w, ListIssuesResponse{Message: "Success", Posts: list})
}

// ownerScoped reports whether a listing asks for one owner's issues, the only
// listing mode that needs a caller identity.
func ownerScoped(r *http.Request) bool {
	return httputil.ParseQueryString(r, "email", "") != ""
}

func (h *IssueHandlers) parseFilter(w http.ResponseWriter, r *http.Request) (issues.Filter, bool) {
	var filter issues.Filter

	if email := httputil.ParseQueryString(r, "email", ""); email != "" {
		authCtx := middleware.GetAuthContext(r)
		if authCtx == nil {
			httputil.WriteUnauthorized(w, "unauthorized")
			return filter, false
		}
		if authCtx.Email() != email {
			httputil.WriteForbidden(w, "forbidden")
			return filter, false
		}
		filter.Email = email
	}

	start := httputil.ParseQueryString(r, "start", "")
	end := httputil.ParseQueryString(r, "end", "")
	if start != "" && end != "" {
		rng, err := parseRange(start, end)
		if err != nil {
			writeError(w, r, err)
			return filter, false
		}
		filter.Range = &rng
	}

	if raw := httputil.ParseQueryString(r, "type", ""); raw != "" {
		t, err := issues.ParseType(raw)
		if err != nil {
			writeError(w, r, err)
			return filter, false
		}
		filter.Type = t
	}

	return filter, true
}

func parseRange(start, end string) (issues.Range, error) {
	s, err := strconv.Atoi(start)
	if err != nil {
		return issues.Range{}, issues.ErrInvalidRange
	}
	e, err := strconv.Atoi(end)
	if err != nil {
		return issues.Range{}, issues.ErrInvalidRange
	}
	return issues.ParseRange(s, e)
}

// createIssue handles POST /api/posts
func (h *IssueHandlers) createIssue(w http.ResponseWriter, r *http.Request) {
	var req CreateIssueRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	owner := middleware.GetAuthContext(r).Email()
	issue, err := issues.New(owner, req.Title, req.Description, req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := h.store.Create(r.Context(), issue)
	if err != nil {
		writeError(w, r, err)
		return
	}
	issue.ID = id

	if h.metrics != nil {
		h.metrics.IssuesCreatedTotal.WithLabelValues(string(issue.Type)).Inc()
	}
	observability.FromContext(r.Context()).WithField("issue_id", id).Info("Issue created")

	if h.notifier != nil {
		if err := h.notifier.NotifyIssueCreated(r.Context(), owner, issue); err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("Notification failed")
		}
	}

	httputil.WriteSuccess(w, CreateIssueResponse{Message: "Issue created", ID: id})
}

// getIssue handles GET /api/posts/{id}
func (h *IssueHandlers) getIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	issue, err := h.store.Get(r.Context(), middleware.GetAuthContext(r).Email(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, IssueResponse{Message: "Success", Post: issue})
}

// updateIssue handles PUT /api/posts/{id}
func (h *IssueHandlers) updateIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateIssueRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	update := req.toUpdate()
	if update.Empty() {
		writeError(w, r, issues.ErrMissingFields)
		return
	}
	if err := update.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.store.Update(r.Context(), middleware.GetAuthContext(r).Email(), id, update); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, MessageResponse{Message: "Issue updated"})
}

// deleteIssue handles DELETE /api/posts/{id}
func (h *IssueHandlers) deleteIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), middleware.GetAuthContext(r).Email(), id); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, MessageResponse{Message: "Deleted"})
}
