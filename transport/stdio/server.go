package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/slighter12/rootstock-mcp-go/logger"
	"github.com/slighter12/rootstock-mcp-go/mcp/jsonrpc"
	"github.com/slighter12/rootstock-mcp-go/transport/shared"
)

const maxFrameBytes = 1 << 20

var errFrameTooLarge = fmt.Errorf("frame exceeds %d bytes", maxFrameBytes)

// StdioServer handles MCP communication over newline-delimited JSON-RPC.
// Requests run concurrently; responses are written one frame at a time.
type StdioServer struct {
	dispatcher shared.ToolDispatcher
	version    string
	in         io.Reader

	mu      sync.Mutex
	encoder *json.Encoder
	wg      sync.WaitGroup
}

// NewStdioServer creates a server bound to the process stdin and stdout.
func NewStdioServer(dispatcher shared.ToolDispatcher, version string) *StdioServer {
	return NewStdioServerWithIO(dispatcher, version, os.Stdin, os.Stdout)
}

// NewStdioServerWithIO creates a server over arbitrary streams.
func NewStdioServerWithIO(dispatcher shared.ToolDispatcher, version string, in io.Reader, out io.Writer) *StdioServer {
	return &StdioServer{
		dispatcher: dispatcher,
		version:    version,
		in:         in,
		encoder:    json.NewEncoder(out),
	}
}

// Start reads frames until the input closes or ctx is cancelled, then waits
// for in-flight requests to finish. An oversized frame is answered with an
// invalid request error and skipped.
func (s *StdioServer) Start(ctx context.Context) error {
	reader := bufio.NewReaderSize(s.in, 64*1024)

	logger.Debug("Stdio server started and waiting for messages")
	defer s.wg.Wait()

	for {
		frame, err := readFrame(reader)
		if ctx.Err() != nil {
			logger.Debug("Stdio server stopping", "reason", ctx.Err())
			return nil
		}
		switch {
		case errors.Is(err, errFrameTooLarge):
			logger.Warn("Dropping oversized stdio frame", "limit", maxFrameBytes)
			s.write(jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInvalidRequest), "Invalid request: "+err.Error(), nil))
			continue
		case errors.Is(err, io.EOF):
			logger.Debug("Stdio EOF received, terminating server")
			return nil
		case err != nil:
			logger.Error("Error reading stdio input", "error", err)
			return err
		}

		requests, prebuilt, _, err := shared.ParseJSONRPCFrame(frame)
		if err != nil {
			// Blank lines are not frames.
			continue
		}
		for _, response := range prebuilt {
			s.write(response)
		}

		for _, msg := range requests {
			s.wg.Add(1)
			go func(msg jsonrpc.Request) {
				defer s.wg.Done()
				s.serve(ctx, msg)
			}(msg)
		}
	}
}

// readFrame returns the next line without its terminator. A line longer than
// maxFrameBytes is consumed through its newline and reported as
// errFrameTooLarge. A final unterminated line is returned before io.EOF.
func readFrame(r *bufio.Reader) ([]byte, error) {
	var frame []byte
	size := 0
	oversized := false
	for {
		chunk, err := r.ReadSlice('\n')
		size += len(chunk)
		content := size
		if err == nil {
			content--
		}
		if content > maxFrameBytes {
			oversized = true
			frame = nil
		} else if !oversized {
			frame = append(frame, chunk...)
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case err == nil:
		case errors.Is(err, io.EOF) && size > 0:
		default:
			return nil, err
		}
		if oversized {
			return nil, errFrameTooLarge
		}
		return bytes.TrimRight(frame, "\r\n"), nil
	}
}

func (s *StdioServer) serve(ctx context.Context, msg jsonrpc.Request) {
	logger.Debug("Stdio message received", "method", msg.Method, "id", msg.ID)
	response := s.handleMessage(ctx, msg)
	if response == nil || msg.ID == nil {
		return
	}
	s.write(response)
}

func (s *StdioServer) handleMessage(ctx context.Context, msg jsonrpc.Request) any {
	switch msg.Method {
	case "initialize":
		response, negotiated := shared.BuildInitializeResponse(msg, s.version)
		logger.Info("Stdio session initialized", "protocol_version", negotiated)
		return response
	default:
		return shared.DispatchStandardMethod(ctx, msg, s.dispatcher)
	}
}

func (s *StdioServer) write(response any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.encoder.Encode(response); err != nil {
		logger.Error("Error encoding response", "error", err)
	}
}
