package http

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	goruntime "runtime"
	"strconv"
	"time"

	"chat-relay/errors"
	"chat-relay/runtime"
	"chat-relay/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shirou/gopsutil/process"
)

const defaultSearchLimit = 50

// Server exposes the REST surface and the websocket endpoint over one chi
// router. Handlers stay thin: every decision lives in the services layer.
type Server struct {
	auth     services.IAuthService
	channels services.IChannelService
	chat     *services.ChatService
	sessions runtime.SessionConfig
	log      *slog.Logger
}

func NewServer(
	authService services.IAuthService,
	channelService services.IChannelService,
	chatService *services.ChatService,
	sessions runtime.SessionConfig,
	log *slog.Logger,
) *Server {
	return &Server{
		auth:     authService,
		channels: channelService,
		chat:     chatService,
		sessions: sessions,
		log:      log,
	}
}

func (s *Server) Router(authMiddleware *AuthMiddleware) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public routes
	r.Post("/user/register", s.handleRegister)
	r.Post("/user/login", s.handleLogin)
	r.Get("/healthz", s.handleHealthz)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Post("/channel/create", s.handleChannelCreate)
		r.Get("/channel/list", s.handleChannelList)
		r.Get("/channel/history/{channel}", s.handleHistory)
		r.Get("/channel/presence/{channel}", s.handlePresence)
		r.Get("/channel/search/{channel}", s.handleSearch)
		r.Get("/ws/{channel}", s.serveWs)
	})

	return r
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := s.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserAlreadyExists) {
			http.Error(w, "username already taken", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		// Generic message to prevent user enumeration
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: string(token)})
}

type createChannelRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleChannelCreate(w http.ResponseWriter, r *http.Request) {
	username, ok := UsernameFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := s.channels.Create(r.Context(), req.Name, username)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusCreated)
	case stderrors.Is(err, errors.ErrInvalidChannelName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case stderrors.Is(err, errors.ErrChannelAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.Error("Channel creation failed", "name", req.Name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleChannelList(w http.ResponseWriter, r *http.Request) {
	channels, err := s.channels.List(r.Context())
	if err != nil {
		s.log.Error("Channel listing failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	history, err := s.chat.History(channel)
	if err != nil {
		s.log.Error("History replay failed", "channel", channel, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	statuses, err := s.chat.Statuses(channel)
	if err != nil {
		s.log.Error("Presence listing failed", "channel", channel, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	terms := r.URL.Query().Get("q")
	if terms == "" {
		http.Error(w, "missing query parameter q", http.StatusBadRequest)
		return
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	hits, err := s.chat.Search(r.Context(), channel, terms, limit)
	if err != nil {
		s.log.Error("Search failed", "channel", channel, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

type healthzResponse struct {
	Status     string  `json:"status"`
	Pid        int     `json:"pid"`
	PidStatus  string  `json:"pid_status,omitempty"`
	RamBytes   uint64  `json:"ram_bytes,omitempty"`
	CpuPercent float64 `json:"cpu_percent,omitempty"`
	UptimeSecs int64   `json:"uptime_seconds,omitempty"`
	Goroutines int     `json:"goroutines"`
}

// handleHealthz reports liveness plus the process self stats (RSS, CPU,
// status). Stat collection failures degrade the payload, never the status
// code.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthzResponse{
		Status:     "ok",
		Pid:        os.Getpid(),
		Goroutines: goruntime.NumGoroutine(),
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := p.MemoryInfo(); err == nil {
			resp.RamBytes = memInfo.RSS
		}
		if cpuPercent, err := p.CPUPercent(); err == nil {
			resp.CpuPercent = cpuPercent
		}
		if status, err := p.Status(); err == nil {
			resp.PidStatus = status
		}
		if createTime, err := p.CreateTime(); err == nil {
			resp.UptimeSecs = (time.Now().UnixMilli() - createTime) / 1000
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
