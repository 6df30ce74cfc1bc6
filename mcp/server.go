// Package mcp exposes the assembled project model over the Model
// Context Protocol: a JSON-RPC 2.0 loop on stdio serving guidance
// resolution, module lookup, impact analysis, and rule search tools.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/junyeong-ai/modmap/internal/embeddings"
	"github.com/junyeong-ai/modmap/internal/manifest"
	"github.com/junyeong-ai/modmap/internal/rules"
	"github.com/junyeong-ai/modmap/internal/storage"
)

// serverName and serverVersion identify the server in the initialize
// handshake.
const (
	serverName    = "modmap"
	serverVersion = "0.1.0"
)

// protocolVersion is the MCP revision the server speaks.
const protocolVersion = "2024-11-05"

// Store is the storage surface the server reads from.
type Store interface {
	GetManifest(ctx context.Context) (*manifest.Manifest, error)
	GetRule(ctx context.Context, name string) (*rules.Rule, error)
	ListRules(ctx context.Context) ([]*rules.Rule, error)
	SearchRules(ctx context.Context, query string, limit int) ([]storage.SearchResult, error)
	AllEmbeddings(ctx context.Context) (map[string][]float32, error)
	Stats(ctx context.Context) (*storage.Stats, error)
}

// snapshot is an immutable view of the loaded project model. Watch
// mode swaps the whole snapshot; individual fields never mutate.
type snapshot struct {
	man *manifest.Manifest
	set *rules.RuleSet
	vec *embeddings.Vectorizer
}

// Server serves the project model over MCP.
type Server struct {
	store Store
	root  string

	mu   sync.RWMutex
	snap *snapshot

	server *mcp.Server
}

// Tool describes an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource describes an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a server reading from the given store. Root is the
// workspace directory drift checks run against. Call Reload before Run
// to load the initial snapshot.
func NewServer(store Store, root string) *Server {
	s := &Server{
		store: store,
		root:  root,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	return s
}

// Reload rebuilds the snapshot from the store. Safe to call while
// requests are in flight; in-flight handlers finish on the old view.
func (s *Server) Reload(ctx context.Context) error {
	man, err := s.store.GetManifest(ctx)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}
	if man == nil {
		return fmt.Errorf("no manifest in store; run assemble first")
	}

	list, err := s.store.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	next := &snapshot{
		man: man,
		set: rules.NewRuleSet(list),
		vec: embeddings.NewVectorizer(list),
	}

	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()
	return nil
}

// current returns the loaded snapshot or an error when Reload has not
// succeeded yet.
func (s *Server) current() (*snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, fmt.Errorf("project model not loaded; run assemble first")
	}
	return s.snap, nil
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "modmap_resolve",
			Description: "Resolve the guidance rules applying to a work context: a file path, task keywords, or both. Returns rules in injection order.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"path": {Type: "string", Description: "Repo-relative file path being worked on"},
					"triggers": {
						Type:        "array",
						Items:       &jsonschema.Schema{Type: "string"},
						Description: "Task keywords, matched case-insensitively",
					},
					"limit": {Type: "integer", Description: "Maximum number of rules to return"},
				},
			},
		},
		{
			Name:        "modmap_module",
			Description: "Look up the module owning a file path: responsibility, metrics, conventions, known issues, and its place in the group/domain hierarchy.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"path": {Type: "string", Description: "Repo-relative file path"},
				},
				Required: []string{"path"},
			},
		},
		{
			Name:        "modmap_impact",
			Description: "Blast radius analysis: modules affected by changing a given module, grouped by dependency distance.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"module": {Type: "string", Description: "Module id to analyze"},
					"depth":  {Type: "integer", Description: "Maximum traversal depth"},
				},
				Required: []string{"module"},
			},
		},
		{
			Name:        "modmap_search",
			Description: "Search the stored rules with hybrid full-text and semantic ranking.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "Search query text"},
					"limit": {Type: "integer", Description: "Maximum number of results"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "modmap_status",
			Description: "Report store contents and drift between the assembled manifest and the files on disk.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "modmap://overview",
			Name:        "Project Overview",
			Description: "High-level view of the project architecture model",
			MimeType:    "text/plain",
		},
		{
			URI:         "modmap://schema",
			Name:        "Graph Document Schema",
			Description: "Description of the module map document format",
			MimeType:    "text/plain",
		},
		{
			URI:         "modmap://rules",
			Name:        "Rule Inventory",
			Description: "Every loaded rule grouped by category with priorities",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	snap, err := s.current()
	if err != nil {
		return "", err
	}

	switch name {
	case "modmap_resolve":
		path, _ := args["path"].(string)
		limit, _ := args["limit"].(float64)
		triggersArg, _ := args["triggers"].([]any)
		triggers := make([]string, 0, len(triggersArg))
		for _, t := range triggersArg {
			if kw, ok := t.(string); ok {
				triggers = append(triggers, kw)
			}
		}
		return handleResolve(snap, path, triggers, int(limit))
	case "modmap_module":
		path, _ := args["path"].(string)
		return handleModule(snap, path)
	case "modmap_impact":
		module, _ := args["module"].(string)
		depth, _ := args["depth"].(float64)
		if depth == 0 {
			depth = 3
		}
		return handleImpact(snap, module, int(depth))
	case "modmap_search":
		query, _ := args["query"].(string)
		limit, _ := args["limit"].(float64)
		if limit == 0 {
			limit = 10
		}
		return handleSearch(ctx, s.store, snap, query, int(limit))
	case "modmap_status":
		return handleStatus(ctx, s.store, snap, s.root)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	snap, err := s.current()
	if err != nil {
		return "", err
	}

	switch uri {
	case "modmap://overview":
		return getOverview(snap), nil
	case "modmap://schema":
		return getSchema(), nil
	case "modmap://rules":
		return getRuleInventory(snap), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run serves JSON-RPC over the given streams until EOF or context
// cancellation. Messages are compact JSON, one per line.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"protocolVersion": protocolVersion,
			"serverInfo": map[string]any{
				"name":    serverName,
				"version": serverVersion,
			},
			"capabilities": map[string]any{
				"tools": map[string]any{
					"listChanged": false,
				},
				"resources": map[string]any{
					"listChanged": false,
				},
			},
		},
	}
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		schema, _ := json.Marshal(tool.InputSchema)
		var schemaMap map[string]any
		_ = json.Unmarshal(schema, &schemaMap)

		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": schemaMap,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"tools": toolList,
		},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := s.CallTool(ctx, name, args)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": result,
				},
			},
		},
	}
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"resources": resourceList,
		},
	}
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)

	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"contents": []map[string]any{
				{
					"uri":      uri,
					"mimeType": "text/plain",
					"text":     content,
				},
			},
		},
	}
}

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
