package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"assetmarket/core"
	"assetmarket/rpc/modules"
)

const (
	jsonRPCVersion        = "2.0"
	maxRequestBytes       = 1 << 20 // 1 MiB
	rateLimitWindow       = time.Minute
	maxMutationsPerWindow = 120
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

type rateLimiter struct {
	count       int
	windowStart time.Time
}

// Server exposes the settlement engines over JSON-RPC 2.0. Read methods are
// open; administrative methods additionally require the configured bearer
// token.
type Server struct {
	node   *core.Node
	logger *slog.Logger

	mu           sync.Mutex
	rateLimiters map[string]*rateLimiter

	authToken string
	market    *modules.MarketModule
	escrow    *modules.EscrowModule
	royalty   *modules.RoyaltyModule
	bank      *modules.BankModule
	events    *modules.EventsModule
}

// NewServer constructs an RPC server bound to the node. An empty authToken
// disables the administrative surface entirely.
func NewServer(node *core.Node, authToken string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		node:         node,
		logger:       logger,
		rateLimiters: make(map[string]*rateLimiter),
		authToken:    strings.TrimSpace(authToken),
		market:       modules.NewMarketModule(node),
		escrow:       modules.NewEscrowModule(node),
		royalty:      modules.NewRoyaltyModule(node),
		bank:         modules.NewBankModule(node),
		events:       modules.NewEventsModule(node),
	}
}

// Router builds the HTTP routes: the JSON-RPC endpoint plus health and
// metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	return r
}

// Start serves the router on addr and blocks.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError carries a JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: &RPCError{Code: code, Message: message}}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "unable to read request body")
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload")
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version")
		return
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required")
		return
	}
	module, handler, meta, ok := s.route(method)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "unknown method "+method)
		return
	}
	if meta.Admin && !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "administrative token required")
		return
	}
	if meta.Mutating && !s.allowMutation(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded")
		return
	}
	var params json.RawMessage
	if len(req.Params) > 0 {
		params = req.Params[0]
	}
	result, err := handler(params)
	if err != nil {
		status, code := modules.HTTPStatus(err)
		s.logger.Warn("rpc call failed",
			"requestId", requestID, "module", module, "method", method, "err", err)
		writeError(w, status, req.ID, code, err.Error())
		return
	}
	s.logger.Info("rpc call", "requestId", requestID, "module", module, "method", method)
	writeResult(w, req.ID, result)
}

func (s *Server) route(method string) (string, modules.Handler, modules.Meta, bool) {
	parts := strings.SplitN(method, "_", 2)
	if len(parts) != 2 {
		return "", nil, modules.Meta{}, false
	}
	module, name := parts[0], parts[1]
	var (
		handler modules.Handler
		meta    modules.Meta
		ok      bool
	)
	switch module {
	case "market":
		handler, meta, ok = s.market.Handler(name)
	case "escrow":
		handler, meta, ok = s.escrow.Handler(name)
	case "royalty":
		handler, meta, ok = s.royalty.Handler(name)
	case "bank":
		handler, meta, ok = s.bank.Handler(name)
	case "events":
		handler, meta, ok = s.events.Handler(name)
	default:
		return "", nil, modules.Meta{}, false
	}
	if !ok {
		return "", nil, modules.Meta{}, false
	}
	return module, handler, meta, true
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(s.authToken)) == 1
}

func (s *Server) allowMutation(source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	limiter, ok := s.rateLimiters[source]
	if !ok || now.Sub(limiter.windowStart) >= rateLimitWindow {
		s.rateLimiters[source] = &rateLimiter{count: 1, windowStart: now}
		return true
	}
	if limiter.count >= maxMutationsPerWindow {
		return false
	}
	limiter.count++
	return true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
