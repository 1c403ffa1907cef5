package server

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HendryAvila/agent-memory/internal/config"
	"github.com/HendryAvila/agent-memory/internal/graph"
	"github.com/HendryAvila/agent-memory/internal/logging"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Project:       "demo",
		WorkDir:       dir,
		StorageRoot:   dir,
		Embedder:      config.EmbedderHash,
		SummaryLength: 200,
		SearchLimit:   5,
		LogLevel:      "info",
		Risk:          graph.DefaultRiskPolicy,
	}
}

func TestNew_RegistersEveryTool(t *testing.T) {
	s, cleanup, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()

	raw := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode response: %v\n%s", err, data)
	}

	got := map[string]bool{}
	for _, tl := range resp.Result.Tools {
		got[tl.Name] = true
	}
	for _, name := range []string{
		"memory_store", "memory_search", "memory_get_full", "memory_stats",
		"conversation_store", "conversation_search", "conversation_get_recent",
		"task_create", "task_list", "task_get", "task_update", "task_close",
		"task_search", "task_stats", "task_get_open", "task_get_my_tasks", "task_get_by_graph_node",
		"graph_add_node", "graph_add_edge", "graph_get_node", "graph_list_nodes", "graph_delete_node",
		"graph_query_relationships", "graph_find_path", "graph_analyze_impact", "graph_find_orphans",
		"graph_stats", "graph_visualize", "graph_search_nodes", "graph_export_architecture",
		"doc_store_section", "doc_get_section", "doc_search", "doc_generate_agent_md", "doc_import_agent_md",
	} {
		if !got[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
	if len(got) != 35 {
		t.Errorf("registered %d tools, want 35", len(got))
	}
}

func rpc(t *testing.T, s *server.MCPServer, msg string) string {
	t.Helper()
	data, err := json.Marshal(s.HandleMessage(context.Background(), json.RawMessage(msg)))
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return string(data)
}

func TestNew_PromptsAndResources(t *testing.T) {
	s, cleanup, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()

	out := rpc(t, s, `{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":{"name":"memory-context"}}`)
	if !strings.Contains(out, "no stored memory yet") {
		t.Errorf("memory-context on an empty namespace = %s", out)
	}
	out = rpc(t, s, `{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":{"name":"memory-status"}}`)
	if !strings.Contains(out, "task_stats") {
		t.Errorf("memory-status = %s", out)
	}
	out = rpc(t, s, `{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"memory://project/status"}}`)
	if !strings.Contains(out, `\"project_id\": \"demo\"`) {
		t.Errorf("status resource = %s", out)
	}
	out = rpc(t, s, `{"jsonrpc":"2.0","id":4,"method":"resources/read","params":{"uri":"memory://project/architecture"}}`)
	if !strings.Contains(out, "Architecture Map") {
		t.Errorf("architecture resource = %s", out)
	}
}

func TestBuild_SharesOneStore(t *testing.T) {
	cfg := testConfig(t)
	c, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c.Close()

	if c.Store.Dir() != cfg.NamespaceDir() {
		t.Errorf("store dir = %q, want %q", c.Store.Dir(), cfg.NamespaceDir())
	}
	ctx := context.Background()
	if _, err := c.Memories.Store(ctx, "Use WAL mode", "decision", ""); err != nil {
		t.Fatalf("store memory: %v", err)
	}
	body, err := c.Briefing.Build(ctx)
	if err != nil {
		t.Fatalf("briefing: %v", err)
	}
	if body == "" {
		t.Error("briefing should report the stored decision")
	}
}

func TestBuild_UnknownEmbedder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedder = "word2vec"
	if _, err := Build(cfg, nil); err == nil {
		t.Error("expected error for unknown embedder")
	}
}

func TestSerialize_OneCallAtATime(t *testing.T) {
	var running, peak int32
	slow := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return mcp.NewToolResultText("ok"), nil
	}
	h := serialize(logging.Discard())(slow)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h(context.Background(), mcp.CallToolRequest{}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if peak != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak)
	}
}
