package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/elhs-robotics/krunchbot/internal/domain"
)

const protocolVersion = "2024-11-05"

// JSON-RPC structures
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MCP structures
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Server exposes the krunchbot admin API as MCP tools over stdio
type Server struct {
	apiURL      string
	apiUsername string
	apiPassword string
	httpClient  *http.Client
	log         logrus.FieldLogger
}

// NewServer creates a bridge to the admin API at apiURL
func NewServer(apiURL, username, password string, timeout time.Duration, log logrus.FieldLogger) *Server {
	return &Server{
		apiURL:      strings.TrimRight(apiURL, "/"),
		apiUsername: username,
		apiPassword: password,
		httpClient:  &http.Client{Timeout: timeout},
		log:         log,
	}
}

// Run answers newline-delimited JSON-RPC requests from in until EOF or ctx ends
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.log.WithError(err).Warn("Skipping malformed request")
			continue
		}

		// notifications carry no id and get no response
		if req.ID == nil && strings.HasPrefix(req.Method, "notifications/") {
			continue
		}

		if err := enc.Encode(s.HandleRequest(ctx, req)); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return scanner.Err()
}

// HandleRequest dispatches one JSON-RPC request
func (s *Server) HandleRequest(ctx context.Context, req Request) Response {
	switch req.Method {
	case "initialize":
		return s.result(req, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]string{"name": "krunchbot-mcp", "version": "1.0.0"},
		})
	case "ping":
		return s.result(req, map[string]any{})
	case "tools/list":
		return s.result(req, map[string]any{"tools": Tools()})
	case "tools/call":
		var params toolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: -32602, Message: "Invalid params"}}
		}
		return s.result(req, s.callTool(ctx, params))
	default:
		return Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: -32601, Message: "Method not found"}}
	}
}

func (s *Server) result(req Request, v any) Response {
	return Response{JSONRPC: "2.0", ID: req.ID, Result: v}
}

// Tools lists the tools the bridge offers
func Tools() []Tool {
	return []Tool{
		{
			Name:        "krunchbot_list_events",
			Description: "List upcoming meetings, or the meetings on a weekday. Weekly series are shown once.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"day": {Type: "string", Description: "Weekday name (optional)", Enum: domain.WeekdayChoices()},
				},
			},
		},
		{
			Name:        "krunchbot_events_now",
			Description: "List meetings happening right now.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		},
		{
			Name:        "krunchbot_add_event",
			Description: "Add a meeting to the calendar. Weekly meetings repeat for a year.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"summary":    {Type: "string", Description: "Meeting title"},
					"date":       {Type: "string", Description: "Date in YYYY-MM-DD"},
					"start_time": {Type: "string", Description: "Start time, hh:mm AM/PM"},
					"end_time":   {Type: "string", Description: "End time, hh:mm AM/PM"},
					"weekly":     {Type: "boolean", Description: "Repeat every week"},
				},
				Required: []string{"summary", "date", "start_time", "end_time"},
			},
		},
		{
			Name:        "krunchbot_preview_announcement",
			Description: "Show the announcement the bot would post right now, without posting it.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		},
		{
			Name:        "krunchbot_schedule_status",
			Description: "Show the announcement triggers with their next and last fire times.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		},
	}
}

func (s *Server) callTool(ctx context.Context, params toolCallParams) ToolCallResult {
	var (
		text    string
		isError bool
	)

	switch params.Name {
	case "krunchbot_list_events":
		path := "/api/events"
		if day, _ := params.Arguments["day"].(string); day != "" {
			path += "?day=" + url.QueryEscape(day)
		}
		text, isError = s.apiRequest(ctx, http.MethodGet, path, nil)
	case "krunchbot_events_now":
		text, isError = s.apiRequest(ctx, http.MethodGet, "/api/events/now", nil)
	case "krunchbot_add_event":
		text, isError = s.apiRequest(ctx, http.MethodPost, "/api/events", params.Arguments)
	case "krunchbot_preview_announcement":
		text, isError = s.apiRequest(ctx, http.MethodGet, "/api/announcement", nil)
	case "krunchbot_schedule_status":
		text, isError = s.apiRequest(ctx, http.MethodGet, "/api/schedule", nil)
	default:
		text, isError = "Unknown tool: "+params.Name, true
	}

	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: isError,
	}
}

func (s *Server) apiRequest(ctx context.Context, method, path string, body any) (string, bool) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Sprintf("Error encoding request: %v", err), true
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.apiURL+path, reqBody)
	if err != nil {
		return fmt.Sprintf("Error creating request: %v", err), true
	}
	if s.apiUsername != "" {
		req.SetBasicAuth(s.apiUsername, s.apiPassword)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Sprintf("Error making request: %v", err), true
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Error reading response: %v", err), true
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return "API Error: " + apiErr.Error, true
		}
		return fmt.Sprintf("API Error: status %d", resp.StatusCode), true
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, respBody, "", "  "); err != nil {
		return string(respBody), false
	}
	return pretty.String(), false
}
