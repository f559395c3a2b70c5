package escrow

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"bount3-backend/core/escrow"
	"bount3-backend/ipfs"
	"bount3-backend/middleware/escrow/middleware"
	"bount3-backend/models"
	"bount3-backend/services"
)

const maxBufferedEvents = 500

// Server wires handlers for the escrow endpoints.
type Server struct {
	engine   *escrow.Engine
	store    escrow.Store
	qr       *services.QRCodeService
	relay    *ipfs.Client
	health   *services.HealthService
	apiKey   string // empty disables auth
	events   []escrow.Event
	eventsMu sync.Mutex
}

// NewServer builds a Server. Register RecordEvent on the engine's event bus
// to feed the /api/escrow/events endpoint.
func NewServer(engine *escrow.Engine, store escrow.Store, qr *services.QRCodeService, relay *ipfs.Client, health *services.HealthService, apiKey string) *Server {
	return &Server{
		engine: engine,
		store:  store,
		qr:     qr,
		relay:  relay,
		health: health,
		apiKey: apiKey,
	}
}

// RecordEvent buffers an event for the event log endpoint.
func (s *Server) RecordEvent(evt escrow.Event) {
	s.eventsMu.Lock()
	s.events = append(s.events, evt)
	if len(s.events) > maxBufferedEvents {
		s.events = s.events[len(s.events)-maxBufferedEvents:]
	}
	s.eventsMu.Unlock()
}

// RegisterRoutes attaches handlers to the mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/escrow/mint", s.authWrap(s.handleMint))
	mux.HandleFunc("/api/escrow/optin", s.authWrap(s.handleOptIn))
	mux.HandleFunc("/api/escrow/campaigns", s.authWrap(s.handleCampaigns))
	mux.HandleFunc("/api/escrow/campaigns/", s.authWrap(s.handleCampaigns))
	mux.HandleFunc("/api/escrow/submissions", s.authWrap(s.handleSubmissions))
	mux.HandleFunc("/api/escrow/submissions/", s.authWrap(s.handleSubmissions))
	mux.HandleFunc("/api/escrow/metadata", s.authWrap(s.handleMetadata))
	mux.HandleFunc("/api/escrow/metadata/", s.authWrap(s.handleMetadata))
	mux.HandleFunc("/api/escrow/events", s.authWrap(s.handleEvents))
	mux.HandleFunc("/api/escrow/config", s.authWrap(s.handleConfig))
	mux.HandleFunc("/api/escrow/qrcode", s.authWrap(s.handleQRCode))
}

// staticAPIKey validates requests against a single configured key. The empty
// key accepts everything.
type staticAPIKey string

func (k staticAPIKey) Validate(key string) bool {
	return k == "" || key == string(k)
}

func (s *Server) authWrap(next http.HandlerFunc) http.HandlerFunc {
	return middleware.CORS(middleware.RequireAPIKey(staticAPIKey(s.apiKey), next))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.health.GetHealthStatus())
}

type mintBody struct {
	Caller string `json:"caller"`
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		middleware.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body mintBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.Error(w, http.StatusBadRequest, "invalid json body")
		return
	}
	assetID, err := s.engine.MintRewardAsset(r.Context(), body.Caller)
	if err != nil {
		middleware.Error(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, map[string]any{"asset_id": assetID})
}

func (s *Server) handleOptIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		middleware.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body mintBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Caller == "" {
		middleware.Error(w, http.StatusBadRequest, "caller is required")
		return
	}
	status, err := s.engine.OptIn(r.Context(), body.Caller)
	if err != nil {
		middleware.Error(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, models.SuccessResponse{Status: status})
}

// CampaignCreateBody captures POST payload for creating campaigns.
type CampaignCreateBody struct {
	Caller           string         `json:"caller"`
	MetadataHash     string         `json:"metadata_hash"`
	Payment          escrow.Payment `json:"payment"`
	DepositAmount    uint64         `json:"deposit_amount"`
	FeeAmount        uint64         `json:"fee_amount"`
	GoalSubmissions  uint64         `json:"goal_submissions"`
	RewardPoolAmount uint64         `json:"reward_pool_amount"`
}

func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/escrow/campaigns")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch r.Method {
	case http.MethodGet:
		if path == "" || path == "/" {
			s.handleListCampaigns(w, r)
			return
		}
		s.handleGetCampaign(w, r, parts[0])
	case http.MethodPost:
		if len(parts) == 2 && parts[1] == "close" {
			s.handleCloseCampaign(w, r, parts[0])
			return
		}
		if path == "" || path == "/" {
			s.handleCreateCampaign(w, r)
			return
		}
		middleware.Error(w, http.StatusNotFound, "unknown campaign action")
	default:
		middleware.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.store.ListCampaigns(r.Context(), escrow.CampaignFilter{
		Creator: r.URL.Query().Get("creator"),
	})
	if err != nil {
		middleware.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"campaigns": campaigns, "total": len(campaigns)})
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request, key string) {
	campaign, err := s.store.GetCampaign(r.Context(), key)
	if err != nil {
		middleware.Error(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, campaign)
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body CampaignCreateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.Error(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if body.Caller == "" || body.MetadataHash == "" {
		middleware.Error(w, http.StatusBadRequest, "caller and metadata_hash are required")
		return
	}
	key, err := s.engine.CreateCampaign(r.Context(), body.Caller, body.MetadataHash, body.Payment,
		body.DepositAmount, body.FeeAmount, body.GoalSubmissions, body.RewardPoolAmount)
	if err != nil {
		middleware.Error(w, statusForError(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"metadata_hash": key})
}

func (s *Server) handleCloseCampaign(w http.ResponseWriter, r *http.Request, key string) {
	var body mintBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Caller == "" {
		middleware.Error(w, http.StatusBadRequest, "caller is required")
		return
	}
	status, err := s.engine.CloseCampaign(r.Context(), body.Caller, key)
	if err != nil {
		middleware.Error(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, models.SuccessResponse{Status: status})
}

// SubmissionCreateBody captures POST payload for submitting work.
type SubmissionCreateBody struct {
	Caller       string `json:"caller"`
	MetadataHash string `json:"metadata_hash"`
	CampaignHash string `json:"campaign_hash"`
}

func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/escrow/submissions")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch r.Method {
	case http.MethodGet:
		if path == "" || path == "/" {
			s.handleListSubmissions(w, r)
			return
		}
		s.handleGetSubmission(w, r, parts[0])
	case http.MethodPost:
		if len(parts) == 2 {
			switch parts[1] {
			case "verify":
				s.handleVerify(w, r, parts[0])
				return
			case "decline":
				s.handleDecline(w, r, parts[0])
				return
			}
		}
		if path == "" || path == "/" {
			s.handleSubmitWork(w, r)
			return
		}
		middleware.Error(w, http.StatusNotFound, "unknown submission action")
	default:
		middleware.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	submissions, err := s.store.ListSubmissions(r.Context(), escrow.SubmissionFilter{
		CampaignHash: r.URL.Query().Get("campaign_hash"),
		Status:       r.URL.Query().Get("status"),
		Creator:      r.URL.Query().Get("creator"),
	})
	if err != nil {
		middleware.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"submissions": submissions, "total": len(submissions)})
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request, key string) {
	submission, err := s.store.GetSubmission(r.Context(), key)
	if err != nil {
		middleware.Error(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, submission)
}

func (s *Server) handleSubmitWork(w http.ResponseWriter, r *http.Request) {
	var body SubmissionCreateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.Error(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if body.Caller == "" || body.MetadataHash == "" || body.CampaignHash == "" {
		middleware.Error(w, http.StatusBadRequest, "caller, metadata_hash and campaign_hash are required")
		return
	}
	key, err := s.engine.SubmitWork(r.Context(), body.Caller, body.MetadataHash, body.CampaignHash)
	if err != nil {
		middleware.Error(w, statusForError(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"metadata_hash": key})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request, key string) {
	status, err := s.engine.Verify(r.Context(), key)
	if err != nil {
		middleware.Error(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, models.SuccessResponse{Status: status})
}

func (s *Server) handleDecline(w http.ResponseWriter, r *http.Request, key string) {
	status, err := s.engine.Decline(r.Context(), key)
	if err != nil {
		middleware.Error(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, models.SuccessResponse{Status: status})
}

const maxMetadataUploadBytes = 10 << 20

// handleMetadata relays campaign metadata to the pinning node. POST pins a
// title/description pair plus an optional attachment and returns the
// directory CID; GET /api/escrow/metadata/{cid} resolves it back.
func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	if s.relay == nil {
		middleware.Error(w, http.StatusServiceUnavailable, "metadata relay not configured")
		return
	}
	switch r.Method {
	case http.MethodPost:
		if err := r.ParseMultipartForm(maxMetadataUploadBytes); err != nil {
			middleware.Error(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		title := r.FormValue("title")
		if title == "" {
			middleware.Error(w, http.StatusBadRequest, "title is required")
			return
		}
		var filename string
		var fileBytes []byte
		if file, header, err := r.FormFile("file"); err == nil {
			defer file.Close()
			fileBytes, err = io.ReadAll(io.LimitReader(file, maxMetadataUploadBytes))
			if err != nil {
				middleware.Error(w, http.StatusBadRequest, "could not read attachment")
				return
			}
			filename = header.Filename
		}
		cid, err := s.relay.Put(r.Context(), title, r.FormValue("description"), filename, fileBytes)
		if err != nil {
			middleware.Error(w, http.StatusBadGateway, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"cid": cid})
	case http.MethodGet:
		cid := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/escrow/metadata"), "/")
		if cid == "" {
			middleware.Error(w, http.StatusBadRequest, "cid is required")
			return
		}
		meta, err := s.relay.Get(r.Context(), cid)
		if err != nil {
			middleware.Error(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, meta)
	default:
		middleware.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		middleware.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.eventsMu.Lock()
	events := append([]escrow.Event{}, s.events...)
	s.eventsMu.Unlock()
	writeJSON(w, map[string]any{"events": events, "total": len(events)})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		middleware.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, s.engine.Status())
}

func (s *Server) handleQRCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		middleware.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	png, err := s.qr.GenerateQRCode(models.QRCodeRequest{
		Address: s.engine.Address(),
		Amount:  r.URL.Query().Get("amount"),
	})
	if err != nil {
		middleware.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, escrow.ErrMissingMetadataHash),
		errors.Is(err, escrow.ErrInvalidReceiver),
		errors.Is(err, escrow.ErrIncorrectAmount),
		errors.Is(err, escrow.ErrZeroGoal):
		return http.StatusBadRequest
	case errors.Is(err, escrow.ErrCampaignNotFound),
		errors.Is(err, escrow.ErrSubmissionNotFound):
		return http.StatusNotFound
	case errors.Is(err, escrow.ErrNotCreator):
		return http.StatusForbidden
	case errors.Is(err, escrow.ErrCampaignExists),
		errors.Is(err, escrow.ErrSubmissionExists),
		errors.Is(err, escrow.ErrAlreadyProcessed),
		errors.Is(err, escrow.ErrCampaignComplete),
		errors.Is(err, escrow.ErrAlreadyMinted),
		errors.Is(err, escrow.ErrAssetNotMinted):
		return http.StatusConflict
	case errors.Is(err, escrow.ErrInsufficientFunds),
		errors.Is(err, escrow.ErrInsufficientAsset),
		errors.Is(err, escrow.ErrNotOptedIn):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
