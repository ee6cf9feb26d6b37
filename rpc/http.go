package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"claimchain/core"
	"claimchain/indexer"
	"claimchain/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	txSeenTTL       = 15 * time.Minute
	metricsModule   = "claim"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeDuplicateTx    = -32010
	codeRateLimited    = -32020
)

// ServerConfig configures the JSON-RPC server.
type ServerConfig struct {
	// AuthToken is a static bearer token accepted for transaction submission.
	AuthToken string
	// JWTSecret enables HS256 bearer tokens. JWTIssuer, when set, must match
	// the iss claim.
	JWTSecret string
	JWTIssuer string
	// RateLimitPerSecond and RateLimitBurst bound submissions per client
	// source. A zero rate disables limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
	// SeenStorePath is the LevelDB directory used to drop duplicate
	// submissions. Empty keeps the store in memory.
	SeenStorePath string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	// Indexer backs claim_listEvents. Nil disables the method.
	Indexer *indexer.Indexer
	// Broker feeds the websocket event stream. Nil disables /ws/events.
	Broker *Broker
	Logger *slog.Logger
}

type Server struct {
	node    *core.Node
	auth    *authenticator
	limiter *sourceLimiter
	seen    *seenStore
	index   *indexer.Indexer
	broker  *Broker
	logger  *slog.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewServer wires the RPC surface around node.
func NewServer(node *core.Node, cfg ServerConfig) (*Server, error) {
	if node == nil {
		return nil, errors.New("rpc: node required")
	}
	seen, err := openSeenStore(cfg.SeenStorePath)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		node:         node,
		auth:         newAuthenticator(cfg.AuthToken, cfg.JWTSecret, cfg.JWTIssuer),
		limiter:      newSourceLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		seen:         seen,
		index:        cfg.Indexer,
		broker:       cfg.Broker,
		logger:       logger,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}, nil
}

// Close releases the duplicate-submission store.
func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	return s.seen.Close()
}

// Handler returns the HTTP handler serving JSON-RPC, health, metrics and the
// event stream.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.handleEventsWS)
	r.Post("/", s.handle)
	return otelhttp.NewHandler(r, "claimchain.rpc")
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("json-rpc server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("rpc: shutdown: %w", err)
		}
		return nil
	}
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	head := s.node.Head()
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"height": head.Height,
		"root":   head.Root.Hex(),
	})
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		observability.ModuleMetrics().Observe(metricsModule, req.Method, recorder.status, time.Since(start))
	}()

	switch req.Method {
	case "claim_sendTransaction":
		if authErr := s.auth.requireAuth(r); authErr != nil {
			writeError(recorder, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleSendTransaction(recorder, r, req)
	case "claim_getReceipt":
		s.handleGetReceipt(recorder, r, req)
	case "claim_getGlobal":
		s.handleGetGlobal(recorder, r, req)
	case "claim_getEntitlement":
		s.handleGetEntitlement(recorder, r, req)
	case "claim_entitlementKey":
		s.handleEntitlementKey(recorder, r, req)
	case "claim_getBalance":
		s.handleGetBalance(recorder, r, req)
	case "claim_getToken":
		s.handleGetToken(recorder, r, req)
	case "claim_getIssuance":
		s.handleGetIssuance(recorder, r, req)
	case "claim_getNonce":
		s.handleGetNonce(recorder, r, req)
	case "claim_reserve":
		s.handleReserve(recorder, r, req)
	case "claim_listEvents":
		s.handleListEvents(recorder, r, req)
	default:
		writeError(recorder, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
	}
}
