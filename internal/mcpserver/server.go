// Package mcpserver exposes diagram generation and evaluation as MCP tools
// over a JSON-RPC 2.0 stdio transport, usable from any MCP client.
//
// The protocol surface is deliberately small: initialize, ping, tools/list,
// and tools/call. Image results are compressed to fit the client's tool
// result size limit before they are base64-encoded onto the wire.
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/llmsresearch/paperbanana/pkg/buildinfo"
	"github.com/llmsresearch/paperbanana/pkg/judge"
	"github.com/llmsresearch/paperbanana/pkg/pipeline"
)

// defaultMaxImageBytes caps raw image bytes returned in tool results.
// Base64 inflates payloads by 4/3, so 3.75 MB stays under a 5 MB wire limit.
const defaultMaxImageBytes = 3_750_000

// maxImageBytesEnv overrides the image size cap.
const maxImageBytesEnv = "PAPERBANANA_MAX_IMAGE_BYTES"

// Server serves PaperBanana tools over one stdio session.
type Server struct {
	runner *pipeline.Runner
	judge  *judge.Judge
	logger *log.Logger

	maxImageBytes int64

	mu  sync.Mutex // serializes writes to out
	out io.Writer
}

// New creates a server. The judge may be nil when no VLM credential is
// configured; evaluate_diagram then reports an error per call instead of
// failing the whole session.
func New(runner *pipeline.Runner, j *judge.Judge, logger *log.Logger) *Server {
	maxBytes := int64(defaultMaxImageBytes)
	if v := os.Getenv(maxImageBytesEnv); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			maxBytes = n
		}
	}
	return &Server{
		runner:        runner,
		judge:         j,
		logger:        logger,
		maxImageBytes: maxBytes,
	}
}

// Serve reads newline-delimited JSON-RPC requests from r and writes
// responses to w until EOF or context cancellation.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.out = w

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			s.write(&response{JSONRPC: jsonRPCVersion, Error: &rpcError{Code: codeParseError, Message: "parse error"}})
			continue
		}
		if resp := s.handle(ctx, &req); resp != nil {
			s.write(resp)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// handle dispatches one request. Notifications return nil.
func (s *Server) handle(ctx context.Context, req *request) *response {
	s.logger.Debug("mcp request", "method", req.Method)

	switch req.Method {
	case methodInitialize:
		return s.result(req, initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    serverCapabilities{Tools: &toolsCapability{}},
			ServerInfo:      serverInfo{Name: "paperbanana", Version: buildinfo.Version},
		})
	case methodInitialized:
		return nil
	case methodPing:
		return s.result(req, struct{}{})
	case methodToolsList:
		return s.result(req, toolsListResult{Tools: toolDefinitions()})
	case methodToolsCall:
		var params toolsCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return s.rpcErr(req, codeInvalidParams, "invalid tools/call params")
		}
		result, err := s.callTool(ctx, params)
		if err != nil {
			return s.rpcErr(req, codeInternalError, err.Error())
		}
		return s.result(req, result)
	}

	if req.isNotification() {
		return nil
	}
	return s.rpcErr(req, codeMethodNotFound, "method not found: "+req.Method)
}

func (s *Server) result(req *request, result any) *response {
	if req.isNotification() {
		return nil
	}
	return &response{JSONRPC: jsonRPCVersion, ID: req.ID, Result: result}
}

func (s *Server) rpcErr(req *request, code int, msg string) *response {
	if req.isNotification() {
		return nil
	}
	return &response{JSONRPC: jsonRPCVersion, ID: req.ID, Error: &rpcError{Code: code, Message: msg}}
}

func (s *Server) write(resp *response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshal response", "error", err)
		return
	}
	data = append(data, '\n')
	if _, err := s.out.Write(data); err != nil {
		s.logger.Error("write response", "error", err)
	}
}
