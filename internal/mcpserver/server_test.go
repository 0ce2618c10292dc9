package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/redisnotes/internal/connector"
	"github.com/starford/redisnotes/internal/keys"
	"github.com/starford/redisnotes/internal/notestore"
	"github.com/starford/redisnotes/internal/storage"
	"github.com/starford/redisnotes/internal/testutil"
)

func testServer(t *testing.T) (*Server, *connector.Connector) {
	t.Helper()
	store := notestore.New(testutil.TestSQLite(t), testutil.Logger())
	conn := connector.New(store, connector.Name)
	srv := New(conn, "test")
	srv.now = func() time.Time { return time.Unix(1450794188, 0) }
	return srv, conn
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"save_note":   srv.saveNote,
		"read_note":   srv.readNote,
		"update_note": srv.updateNote,
		"delete_note": srv.deleteNote,
		"find_notes":  srv.findNotes,
		"list_notes":  srv.listNotes,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSaveAndReadNote(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "save_note", map[string]any{"text": "a quick note", "timestamp": float64(1373500800)})
	if text := resultText(r); text != "saved: 1373500800" {
		t.Errorf("save result = %q", text)
	}

	r = callTool(t, srv, "read_note", map[string]any{"timestamp": float64(1373500800)})
	if text := resultText(r); text != "a quick note" {
		t.Errorf("read result = %q", text)
	}
}

func TestSaveNote_DefaultTimestamp(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "save_note", map[string]any{"text": "now"})
	if text := resultText(r); text != "saved: 1450794188" {
		t.Errorf("save result = %q", text)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]any{"timestamp": float64(1)})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestUpdateAndDeleteNote(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "save_note", map[string]any{"text": "v1", "timestamp": float64(100)})

	r := callTool(t, srv, "update_note", map[string]any{"timestamp": float64(100), "new_timestamp": float64(200), "text": "v2"})
	if text := resultText(r); text != "updated: 200" {
		t.Errorf("update result = %q", text)
	}
	if r := callTool(t, srv, "read_note", map[string]any{"timestamp": float64(100)}); !r.IsError {
		t.Error("old timestamp should be gone")
	}

	callTool(t, srv, "delete_note", map[string]any{"timestamp": float64(200)})
	if r := callTool(t, srv, "read_note", map[string]any{"timestamp": float64(200)}); !r.IsError {
		t.Error("deleted note still readable")
	}

	r = callTool(t, srv, "update_note", map[string]any{"timestamp": float64(999), "text": "x"})
	if !r.IsError {
		t.Error("updating a missing note should fail")
	}
}

func TestFindNotes(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "save_note", map[string]any{"text": "redis notes #db", "timestamp": float64(1373500800)})
	callTool(t, srv, "save_note", map[string]any{"text": "redis cache", "timestamp": float64(1450794188)})

	r := callTool(t, srv, "find_notes", map[string]any{"query": "redis #db"})
	var notes []notestore.Note
	if err := json.Unmarshal([]byte(resultText(r)), &notes); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if len(notes) != 1 || notes[0].ID != 1373500800 {
		t.Errorf("find = %+v", notes)
	}

	r = callTool(t, srv, "find_notes", map[string]any{"query": "postgres"})
	if text := resultText(r); text != "no notes found" {
		t.Errorf("empty find = %q", text)
	}
}

func TestListNotes(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "save_note", map[string]any{"text": "a", "timestamp": float64(1)})
	callTool(t, srv, "save_note", map[string]any{"text": "b", "timestamp": float64(2)})

	r := callTool(t, srv, "list_notes", map[string]any{})
	if text := resultText(r); text != "2\n1" {
		t.Errorf("list = %q", text)
	}
}

func TestDisabledConnector(t *testing.T) {
	srv, conn := testServer(t)
	conn.SetConnectors("local_notes")
	r := callTool(t, srv, "list_notes", map[string]any{})
	if !r.IsError || !strings.Contains(resultText(r), "disabled") {
		t.Errorf("disabled list = %+v", r)
	}
}

func TestSearchSyntaxResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readSearchSyntax(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || !strings.Contains(tc.Text, "weekday") {
		t.Errorf("unexpected resource contents: %+v", contents[0])
	}
}

// brokenBodies fails reads of note bodies while the rest of the store works.
type brokenBodies struct {
	storage.Store
}

func (b brokenBodies) Get(ctx context.Context, key string) (string, error) {
	if _, ok := keys.ParseNoteKey(key); ok {
		return "", errors.New("read failed")
	}
	return b.Store.Get(ctx, key)
}

func TestUpdateNote_StoreError(t *testing.T) {
	kv := testutil.TestSQLite(t)
	if err := notestore.New(kv, testutil.Logger()).Save(context.Background(), 100, "v1"); err != nil {
		t.Fatal(err)
	}
	conn := connector.New(notestore.New(brokenBodies{kv}, testutil.Logger()), connector.Name)
	srv := New(conn, "test")

	r := callTool(t, srv, "update_note", map[string]any{"timestamp": float64(100), "new_timestamp": float64(200), "text": "v2"})
	if !r.IsError || !strings.Contains(resultText(r), "read failed") {
		t.Errorf("update with failing read = %+v", r)
	}
	if _, err := kv.Get(context.Background(), keys.NoteKey(200)); err == nil {
		t.Error("note moved despite the read error")
	}
}
