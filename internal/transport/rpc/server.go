// Package rpc serves the internal JSON-RPC 2.0 interface over a unix socket,
// for co-located services that need trust data without going through the
// public HTTP quota stack.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"trustgraph/internal/trust/models"
	"trustgraph/internal/trust/service"
	"trustgraph/pkg/apperrors"
)

// Service is the slice of the trust service the RPC surface exposes.
type Service interface {
	Profile(ctx context.Context, address string) (*service.TrustProfile, error)
	RecordScore(ctx context.Context, in models.CreateScoreEntryInput) (*models.ScoreHistoryEntry, error)
	TotalSlashed(ctx context.Context, bondID int64) (string, error)
	GetIdentity(ctx context.Context, address string) (*models.Identity, error)
}

type Server struct {
	service  Service
	logger   *slog.Logger
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Start binds the unix socket and begins accepting connections. A stale
// socket file from a previous run is removed first; the socket is restricted
// to the service user.
func Start(path string, svc Service, logger *slog.Logger) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: svc, logger: logger, listener: ln, path: path}
	go s.serve()
	logger.Info("rpc server listening", "socket", path)
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "trust.identity.get":
		var p struct {
			Address string `json:"address"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		identity, err := s.service.GetIdentity(ctx, p.Address)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, identity)

	case "trust.profile":
		var p struct {
			Address string `json:"address"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		profile, err := s.service.Profile(ctx, p.Address)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, profile)

	case "trust.score.record":
		var p struct {
			Address string `json:"address"`
			Score   int    `json:"score"`
			Source  string `json:"source"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		entry, err := s.service.RecordScore(ctx, models.CreateScoreEntryInput{
			IdentityAddress: p.Address,
			Score:           p.Score,
			Source:          models.ScoreSource(p.Source),
		})
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, entry)

	case "bond.totalSlashed":
		var p struct {
			BondID int64 `json:"bondId"`
		}
		if !decodeParams(req.Params, &p) || p.BondID <= 0 {
			return invalidParams(req.ID)
		}
		total, err := s.service.TotalSlashed(ctx, p.BondID)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"bondId": p.BondID, "totalSlashed": total})

	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

func result(id, v any) response {
	return response{JSONRPC: "2.0", Result: v, ID: id}
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

// appError maps coded domain errors onto JSON-RPC application error codes:
// the HTTP status for the code, scaled by 100 (40400 for not found, 40000
// for bad input, 50000 otherwise).
func appError(id any, err error) response {
	code := apperrors.CodeOf(err)
	return response{
		JSONRPC: "2.0",
		Error: &rpcError{
			Code:    rpcCodeFor(code),
			Message: err.Error(),
		},
		ID: id,
	}
}

func rpcCodeFor(code apperrors.Code) int {
	switch code {
	case apperrors.CodeInvalidInput, apperrors.CodeForeignKeyViolation, apperrors.CodeCheckViolation:
		return 40000
	case apperrors.CodeNotFound:
		return 40400
	case apperrors.CodeDuplicateKey:
		return 40900
	default:
		return 50000
	}
}
