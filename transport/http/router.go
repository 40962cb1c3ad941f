package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/slighter12/rootstock-mcp-go/logger"
	"github.com/slighter12/rootstock-mcp-go/mcp"
	"github.com/slighter12/rootstock-mcp-go/mcp/jsonrpc"
	"github.com/slighter12/rootstock-mcp-go/metrics"
	"github.com/slighter12/rootstock-mcp-go/transport/shared"
)

const maxJSONRPCBodyBytes = 1 << 20

const (
	headerSessionID       = "MCP-Session-Id"
	headerProtocolVersion = "MCP-Protocol-Version"
)

func RegisterRoutes(e *echo.Echo, s *Server) {
	e.GET("/", s.handleHTTPInfo)
	e.POST("/mcp", s.handleStreamableHTTPPost)
	e.GET("/mcp", s.handleStreamableHTTPGet)
	e.DELETE("/mcp", s.handleStreamableHTTPDelete)
	e.OPTIONS("/mcp", s.handleOptions)
	if s.config.Metrics.Enabled {
		e.GET(s.config.Metrics.Path, echo.WrapHandler(metrics.Handler()))
	}
}

func (s *Server) handleHTTPInfo(c echo.Context) error {
	logger.Debug("HTTP info requested", "remote_addr", c.RealIP())
	info := map[string]any{
		"name":    s.config.Name,
		"version": s.config.Version,
		"type":    "rootstock-mcp",
		"capabilities": map[string]any{
			"stdio":           true,
			"streamable_http": true,
		},
		"streamable_http_endpoint": "/mcp",
		"sessions":                 s.sessionManager.Count(),
	}
	if s.config.Metrics.Enabled {
		info["metrics_endpoint"] = s.config.Metrics.Path
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleOptions(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func invalidRequest(c echo.Context, status int, message string) error {
	return c.JSON(status, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInvalidRequest), message, nil))
}

func (s *Server) handleStreamableHTTPPost(c echo.Context) error {
	limitedBody := http.MaxBytesReader(c.Response(), c.Request().Body, maxJSONRPCBodyBytes)
	defer limitedBody.Close()

	body, err := io.ReadAll(limitedBody)
	if err != nil {
		if _, ok := errors.AsType[*http.MaxBytesError](err); ok {
			logger.Warn("Request body too large", "limit_bytes", maxJSONRPCBodyBytes, "remote_addr", c.RealIP())
			return invalidRequest(c, http.StatusRequestEntityTooLarge, "Request body too large")
		}
		logger.Error("Failed to read request body", "error", err)
		return c.JSON(http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrParseError), "Parse error", nil))
	}

	requests, prebuiltResponses, acceptedOneWay, err := shared.ParseJSONRPCFrame(body)
	if err != nil {
		logger.Debug("Failed to parse JSON-RPC request", "error", err)
		return c.JSON(http.StatusBadRequest, jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrParseError), "Parse error", nil))
	}
	if len(requests) == 0 && len(prebuiltResponses) > 0 {
		return c.JSON(http.StatusBadRequest, prebuiltResponses[0])
	}

	requestedVersion := strings.TrimSpace(c.Request().Header.Get(headerProtocolVersion))
	if requestedVersion != "" && !mcp.IsSupportedProtocolVersion(requestedVersion) {
		return invalidRequest(c, http.StatusBadRequest, "Unsupported MCP-Protocol-Version header")
	}

	sessionID := c.Request().Header.Get(headerSessionID)
	if len(requests) == 1 && requests[0].Method == "initialize" {
		return s.handleInitialize(c, requests[0])
	}

	if sessionID == "" {
		return invalidRequest(c, http.StatusBadRequest, "Missing MCP-Session-Id header")
	}
	if !s.sessionManager.TouchSession(sessionID) {
		return invalidRequest(c, http.StatusNotFound, "Unknown MCP session")
	}
	if !s.isProtocolVersionAccepted(sessionID, requestedVersion) {
		return invalidRequest(c, http.StatusBadRequest, "Invalid MCP-Protocol-Version header")
	}
	c.Response().Header().Set(headerSessionID, sessionID)

	if acceptedOneWay || len(requests) == 0 {
		return c.NoContent(http.StatusAccepted)
	}

	request := requests[0]
	logger.Debug("Streamable HTTP request received", "method", request.Method, "id", request.ID, "session_id", sessionID)
	if request.Method == "initialized" || request.Method == "notifications/initialized" {
		if request.ID == nil {
			s.sessionManager.MarkInitialized(sessionID)
		}
	}

	response := shared.DispatchStandardMethod(c.Request().Context(), request, s.dispatcher)
	if request.ID == nil || response == nil {
		return c.NoContent(http.StatusAccepted)
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) handleInitialize(c echo.Context, msg jsonrpc.Request) error {
	response, negotiated := shared.BuildInitializeResponse(msg, s.config.Version)
	if response.Error != nil {
		return c.JSON(http.StatusOK, response)
	}

	sessionID := s.sessionManager.CreateSession(negotiated)
	logger.Info("MCP session created", "session_id", sessionID, "protocol_version", negotiated)
	c.Response().Header().Set(headerSessionID, sessionID)
	return c.JSON(http.StatusOK, response)
}

// handleStreamableHTTPGet rejects the server-initiated stream; this server
// never sends notifications.
func (s *Server) handleStreamableHTTPGet(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderAllow, strings.Join([]string{http.MethodPost, http.MethodDelete, http.MethodOptions}, ", "))
	return invalidRequest(c, http.StatusMethodNotAllowed, "SSE stream is not available")
}

func (s *Server) handleStreamableHTTPDelete(c echo.Context) error {
	sessionID := c.Request().Header.Get(headerSessionID)
	if sessionID == "" {
		return invalidRequest(c, http.StatusBadRequest, "Missing MCP-Session-Id header")
	}
	if !s.sessionManager.HasSession(sessionID) {
		return invalidRequest(c, http.StatusNotFound, "Unknown MCP session")
	}
	s.sessionManager.RemoveSession(sessionID)
	logger.Info("MCP session closed", "session_id", sessionID)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) isProtocolVersionAccepted(sessionID, requestedVersion string) bool {
	if requestedVersion == "" {
		return true
	}
	negotiated, ok := s.sessionManager.ProtocolVersion(sessionID)
	return !ok || negotiated == "" || negotiated == requestedVersion
}
