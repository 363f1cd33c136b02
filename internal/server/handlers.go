package server

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/calvoice/calvoice/internal/clock"
	"github.com/calvoice/calvoice/internal/instrumentation"
	"github.com/calvoice/calvoice/internal/logging"
	"github.com/calvoice/calvoice/internal/vapi"
)

// Router builds the public API router.
func (sc *ServerContext) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(sc.metricsMiddleware)

	r.HandleFunc("/", sc.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/session", sc.handleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/webhook", sc.handleWebhook).Methods(http.MethodPost)
	r.HandleFunc("/current-time", sc.handleCurrentTime).Methods(http.MethodGet)
	r.HandleFunc("/auth/status", sc.handleAuthStatus).Methods(http.MethodGet)
	r.HandleFunc("/auth/google", sc.handleAuthConnect).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", sc.handleAuthCallback).Methods(http.MethodGet)

	return r
}

func (sc *ServerContext) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "calvoice",
		"status":  "ok",
	})
}

type createSessionRequest struct {
	UserID string `json:"userId"`
}

type createSessionResponse struct {
	Token string `json:"token"`
}

// handleCreateSession mints a one-shot session token the client attaches to
// the call's variable values before starting the call.
func (sc *ServerContext) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be JSON")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	token, err := sc.registry.Register(req.UserID)
	if err != nil {
		sc.logger.Error("Failed to mint session token", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	sc.metrics.RecordSessionTokenIssued(r.Context())
	sc.logger.Info("Session token issued", logging.UserHash(req.UserID))
	writeJSON(w, http.StatusOK, createSessionResponse{Token: token})
}

// handleWebhook is the assistant platform's single entry point. Malformed
// envelopes get a 400; everything past parsing is answered 200 with the
// failure carried in-band, because platform-level retries of tool batches
// are not idempotent.
func (sc *ServerContext) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var envelope vapi.Envelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON webhook envelope")
		return
	}

	resp := sc.dispatcher.Handle(r.Context(), &envelope.Message)
	writeJSON(w, http.StatusOK, resp)
}

type currentTimeResponse struct {
	CurrentDateTime         string `json:"currentDateTime"`
	CurrentDateTimeReadable string `json:"currentDateTimeReadable"`
	Timestamp               int64  `json:"timestamp"`
}

func (sc *ServerContext) handleCurrentTime(w http.ResponseWriter, r *http.Request) {
	snap := clock.Now(r.URL.Query().Get("timezone"))
	instant, _ := snap.Instant()

	writeJSON(w, http.StatusOK, currentTimeResponse{
		CurrentDateTime:         snap.ISOTimestamp,
		CurrentDateTimeReadable: snap.HumanReadable,
		Timestamp:               instant.Unix(),
	})
}

type authStatusResponse struct {
	Connected bool `json:"connected"`
}

func (sc *ServerContext) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	writeJSON(w, http.StatusOK, authStatusResponse{
		Connected: sc.provider.HasToken(r.Context(), userID),
	})
}

// handleAuthConnect starts the Google consent flow. The user ID travels in
// the OAuth state parameter and comes back on the callback.
func (sc *ServerContext) handleAuthConnect(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	http.Redirect(w, r, sc.oauthCfg.AuthCodeURL(userID), http.StatusFound)
}

func (sc *ServerContext) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := query.Get("state")
	code := query.Get("code")

	if errMsg := query.Get("error"); errMsg != "" {
		sc.metrics.RecordOAuthConnect(r.Context(), instrumentation.StatusError)
		writeHTML(w, http.StatusBadRequest, connectFailurePage(errMsg))
		return
	}
	if userID == "" || code == "" {
		sc.metrics.RecordOAuthConnect(r.Context(), instrumentation.StatusError)
		writeHTML(w, http.StatusBadRequest, connectFailurePage("missing state or code"))
		return
	}

	token, err := sc.oauthCfg.Exchange(r.Context(), code)
	if err != nil {
		sc.metrics.RecordOAuthConnect(r.Context(), instrumentation.StatusError)
		sc.logger.Error("OAuth code exchange failed", logging.UserHash(userID), logging.Err(err))
		writeHTML(w, http.StatusBadGateway, connectFailurePage("could not complete the Google sign-in"))
		return
	}

	if err := sc.provider.SaveToken(r.Context(), userID, token); err != nil {
		sc.metrics.RecordOAuthConnect(r.Context(), instrumentation.StatusError)
		sc.logger.Error("Failed to persist OAuth token", logging.UserHash(userID), logging.Err(err))
		writeHTML(w, http.StatusInternalServerError, connectFailurePage("could not save the connection"))
		return
	}

	// A reconnect invalidates any cached client built on the old token.
	sc.scheduler.Evict(userID)

	sc.metrics.RecordOAuthConnect(r.Context(), instrumentation.StatusSuccess)
	sc.logger.Info("Google Calendar connected", logging.UserHash(userID))
	writeHTML(w, http.StatusOK, connectSuccessPage)
}

const connectSuccessPage = `<!DOCTYPE html>
<html>
<head><title>Calendar Connected</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>&#10003; Calendar Connected</h1>
<p>Your Google Calendar is now connected. You can close this window and return to your call.</p>
</body>
</html>`

func connectFailurePage(reason string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Connection Failed</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>Connection Failed</h1>
<p>%s</p>
<p>Please try connecting your calendar again.</p>
</body>
</html>`, html.EscapeString(reason))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
