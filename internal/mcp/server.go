package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"twincat-mcp/internal/app/dispatch"
	"twincat-mcp/internal/shared/async"
	"twincat-mcp/internal/shared/logging"
	"twincat-mcp/internal/shared/utils/id"
	"twincat-mcp/internal/tools/catalog"
)

const (
	initialLineBuffer = 64 * 1024
	maxLineBuffer     = 2 * 1024 * 1024
)

// ToolHandler lists and runs tools.
type ToolHandler interface {
	Tools() []catalog.ToolDescriptor
	Dispatch(ctx context.Context, name string, args map[string]any) dispatch.Result
}

// ServerOptions configures a Server.
type ServerOptions struct {
	Name    string
	Version string
	Logger  logging.Logger
}

// Server speaks newline-delimited JSON-RPC over a reader/writer pair, usually stdio.
// tools/call requests run concurrently; every other method is answered inline.
type Server struct {
	handler ToolHandler
	info    ServerInfo
	logger  logging.Logger

	writeMu sync.Mutex
	encoder *json.Encoder

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	wg       sync.WaitGroup
}

// NewServer creates a server around handler.
func NewServer(handler ToolHandler, opts ServerOptions) *Server {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = defaultServerName
	}
	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = defaultServerVersion
	}
	logger := opts.Logger
	if logging.IsNil(logger) {
		logger = logging.NewComponentLogger("MCPServer")
	}
	return &Server{
		handler:  handler,
		info:     ServerInfo{Name: name, Version: version},
		logger:   logger,
		inflight: make(map[string]context.CancelFunc),
	}
}

// Serve reads requests from in until EOF or ctx is done, writing responses
// to out. In-flight tool calls are cancelled and awaited before it returns.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.encoder = json.NewEncoder(out)
	s.encoder.SetEscapeHTML(false)

	lines := make(chan inputLine)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		reader := bufio.NewReaderSize(in, initialLineBuffer)
		for {
			data, oversized, err := readLine(reader, maxLineBuffer)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
			select {
			case lines <- inputLine{data: data, oversized: oversized}:
			case <-ctx.Done():
				return
			}
		}
	}()

	s.logger.Info("serving MCP on stdio as %s %s", s.info.Name, s.info.Version)
	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				select {
				case err = <-readErr:
				default:
				}
				break loop
			}
			if line.oversized {
				s.logger.Warn("dropped request line longer than %d bytes", maxLineBuffer)
				s.write(NewErrorResponse(nil, ParseError, "Parse error", fmt.Sprintf("request exceeds %d bytes", maxLineBuffer)))
				continue
			}
			s.handleLine(ctx, line.data)
		}
	}

	s.cancelAll()
	s.wg.Wait()
	s.logger.Info("MCP server stopped")
	return err
}

type inputLine struct {
	data      []byte
	oversized bool
}

// readLine returns the next newline-delimited line. A line longer than limit
// is consumed to its end and reported as oversized with no data.
func readLine(r *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	oversized := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > limit {
				oversized = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && (len(line) > 0 || oversized):
			return line, oversized, nil
		default:
			return line, oversized, err
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	req, err := UnmarshalRequest(line)
	if err != nil {
		var rpcErr *RPCError
		if !errors.As(err, &rpcErr) {
			rpcErr = &RPCError{Code: InternalError, Message: err.Error()}
		}
		s.logger.Warn("bad request: %v", rpcErr)
		if req != nil && req.IsNotification() {
			return
		}
		var reqID json.RawMessage
		if req != nil {
			reqID = req.ID
		}
		s.write(NewErrorResponse(reqID, rpcErr.Code, rpcErr.Message, rpcErr.Data))
		return
	}

	if req.IsNotification() {
		s.handleNotification(req)
		return
	}

	switch req.Method {
	case MethodInitialize:
		s.write(NewResponse(req.ID, InitializeResult{
			ProtocolVersion: MCPProtocolVersion,
			Capabilities:    ServerCapabilities{Tools: &ToolsCapability{ListChanged: false}},
			ServerInfo:      s.info,
			Instructions:    serverInstructions,
		}))
	case MethodPing:
		s.write(NewResponse(req.ID, struct{}{}))
	case MethodToolsList:
		s.write(NewResponse(req.ID, ToolsListResult{Tools: s.handler.Tools()}))
	case MethodToolsCall:
		s.startCall(ctx, req)
	default:
		s.write(NewErrorResponse(req.ID, MethodNotFound, fmt.Sprintf("unknown method: %s", req.Method), nil))
	}
}

func (s *Server) handleNotification(req *Request) {
	switch req.Method {
	case MethodInitialized:
		s.logger.Debug("client initialized")
	case MethodCancelled:
		var params CancelledParams
		if err := req.DecodeParams(&params); err != nil || len(params.RequestID) == 0 {
			s.logger.Warn("ignoring malformed cancellation: %v", err)
			return
		}
		if s.cancel(IDKey(params.RequestID)) {
			s.logger.Info("cancelled request %s: %s", IDKey(params.RequestID), params.Reason)
		}
	default:
		s.logger.Debug("ignoring notification %s", req.Method)
	}
}

func (s *Server) startCall(ctx context.Context, req *Request) {
	var params ToolCallParams
	if err := req.DecodeParams(&params); err != nil {
		s.write(NewErrorResponse(req.ID, InvalidParams, "Invalid params", err.Error()))
		return
	}
	if strings.TrimSpace(params.Name) == "" {
		s.write(NewErrorResponse(req.ID, InvalidParams, "Missing tool name", nil))
		return
	}

	callID := id.NewCallID()
	callCtx, cancel := context.WithCancel(id.WithCallID(ctx, callID))
	key := IDKey(req.ID)
	s.mu.Lock()
	if _, dup := s.inflight[key]; dup {
		s.mu.Unlock()
		cancel()
		s.write(NewErrorResponse(req.ID, InvalidRequest, "Duplicate request id", nil))
		return
	}
	s.inflight[key] = cancel
	s.mu.Unlock()

	logger := logging.WithCallID(s.logger, callID)
	logger.Info("tools/call %s (request %s)", params.Name, key)

	async.Go(logger, "tools/call "+params.Name, &s.wg, func() {
		defer s.finish(key, cancel)
		res := s.handler.Dispatch(callCtx, params.Name, params.Arguments)
		s.write(NewResponse(req.ID, ToolCallResult{
			Content: []ContentBlock{{Type: contentTypeText, Text: res.Text}},
			IsError: res.IsError,
		}))
	})
}

func (s *Server) finish(key string, cancel context.CancelFunc) {
	cancel()
	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()
}

func (s *Server) cancel(key string) bool {
	s.mu.Lock()
	cancel, ok := s.inflight[key]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (s *Server) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.inflight {
		cancel()
	}
}

func (s *Server) write(resp *Response) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.encoder.Encode(resp); err != nil {
		s.logger.Error("failed to write response: %v", err)
	}
}
