package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"twincat-mcp/internal/app/dispatch"
	"twincat-mcp/internal/shared/logging"
	"twincat-mcp/internal/tools/catalog"
)

type stubHandler struct {
	started chan string
	block   bool
}

func (h *stubHandler) Tools() []catalog.ToolDescriptor {
	return catalog.Default().List()
}

func (h *stubHandler) Dispatch(ctx context.Context, name string, args map[string]any) dispatch.Result {
	if h.started != nil {
		h.started <- name
	}
	if h.block {
		<-ctx.Done()
		return dispatch.Result{Text: "cancelled: " + ctx.Err().Error(), IsError: true}
	}
	if name == "fail" {
		return dispatch.Result{Text: "❌ nope", IsError: true}
	}
	return dispatch.Result{Text: "ran " + name + " on " + args["solutionPath"].(string)}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) responses(t *testing.T) map[string]map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	out := map[string]map[string]any{}
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var msg map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &msg), line)
		raw, _ := json.Marshal(msg["id"])
		out[string(raw)] = msg
	}
	return out
}

func serve(t *testing.T, handler ToolHandler, input string) map[string]map[string]any {
	t.Helper()
	out := &syncBuffer{}
	srv := NewServer(handler, ServerOptions{Version: "1.2.3", Logger: logging.Nop()})
	require.NoError(t, srv.Serve(context.Background(), strings.NewReader(input), out))
	return out.responses(t)
}

func TestServerRoundTrip(t *testing.T) {
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":"call-a","method":"tools/call","params":{"name":"twincat_build","arguments":{"solutionPath":"C:\\P\\S.sln"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"ping"}`,
		``,
	}, "\n")

	responses := serve(t, &stubHandler{}, input)
	require.Len(t, responses, 4)

	initResult := responses["1"]["result"].(map[string]any)
	require.Equal(t, MCPProtocolVersion, initResult["protocolVersion"])
	require.Equal(t, map[string]any{"name": "twincat-mcp", "version": "1.2.3"}, initResult["serverInfo"])

	tools := responses["2"]["result"].(map[string]any)["tools"].([]any)
	require.Len(t, tools, 7)
	require.Equal(t, "twincat_build", tools[0].(map[string]any)["name"])

	call := responses[`"call-a"`]["result"].(map[string]any)
	require.Equal(t, false, call["isError"])
	content := call["content"].([]any)[0].(map[string]any)
	require.Equal(t, "text", content["type"])
	require.Equal(t, `ran twincat_build on C:\P\S.sln`, content["text"])

	require.Equal(t, map[string]any{}, responses["4"]["result"])
}

func TestServerErrors(t *testing.T) {
	input := strings.Join([]string{
		`{not json`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"fail","arguments":{}}}`,
		`{"jsonrpc":"1.0","id":5,"method":"ping"}`,
	}, "\n")

	responses := serve(t, &stubHandler{}, input)

	code := func(id string) float64 {
		return responses[id]["error"].(map[string]any)["code"].(float64)
	}
	require.Equal(t, float64(ParseError), code("null"))
	require.Equal(t, float64(MethodNotFound), code("2"))
	require.Equal(t, float64(InvalidParams), code("3"))
	require.Equal(t, float64(InvalidRequest), code("5"))

	failed := responses["4"]["result"].(map[string]any)
	require.Equal(t, true, failed["isError"])
}

func TestServerCancelledNotificationStopsCall(t *testing.T) {
	handler := &stubHandler{started: make(chan string, 1), block: true}
	inR, inW := io.Pipe()
	out := &syncBuffer{}
	srv := NewServer(handler, ServerOptions{Logger: logging.Nop()})

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), inR, out) }()

	_, err := io.WriteString(inW, `{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"twincat_deploy","arguments":{}}}`+"\n")
	require.NoError(t, err)
	select {
	case <-handler.started:
	case <-time.After(2 * time.Second):
		t.Fatal("call did not start")
	}

	_, err = io.WriteString(inW, `{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":9,"reason":"user abort"}}`+"\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(out.responses(t)) == 1 }, 2*time.Second, 10*time.Millisecond)
	res := out.responses(t)["9"]["result"].(map[string]any)
	require.Equal(t, true, res["isError"])
	require.Contains(t, res["content"].([]any)[0].(map[string]any)["text"], "context canceled")

	require.NoError(t, inW.Close())
	require.NoError(t, <-done)
}

func TestServerEOFCancelsAndAwaitsInflightCalls(t *testing.T) {
	handler := &stubHandler{started: make(chan string, 1), block: true}
	inR, inW := io.Pipe()
	out := &syncBuffer{}
	srv := NewServer(handler, ServerOptions{Logger: logging.Nop()})

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), inR, out) }()

	_, err := io.WriteString(inW, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"twincat_build","arguments":{}}}`+"\n")
	require.NoError(t, err)
	<-handler.started
	require.NoError(t, inW.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after EOF")
	}
	require.Len(t, out.responses(t), 1)
}

func TestServerStopsOnContextCancel(t *testing.T) {
	inR, inW := io.Pipe()
	defer inW.Close()
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(&stubHandler{}, ServerOptions{Logger: logging.Nop()})

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, inR, io.Discard) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServerAnswersOversizedLineAndKeepsReading(t *testing.T) {
	huge := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"twincat_build","arguments":{"solutionPath":"` +
		strings.Repeat("x", maxLineBuffer+1024) + `"}}}`
	input := huge + "\n" + `{"jsonrpc":"2.0","id":2,"method":"ping"}` + "\n"

	responses := serve(t, &stubHandler{}, input)
	require.Len(t, responses, 2)

	parseErr := responses["null"]["error"].(map[string]any)
	require.EqualValues(t, ParseError, parseErr["code"])
	require.Contains(t, parseErr["data"], "request exceeds")

	require.Equal(t, map[string]any{}, responses["2"]["result"])
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader("short\n"+strings.Repeat("y", 40)+"\nlast"), 16)

	line, oversized, err := readLine(r, 32)
	require.NoError(t, err)
	require.False(t, oversized)
	require.Equal(t, "short\n", string(line))

	line, oversized, err = readLine(r, 32)
	require.NoError(t, err)
	require.True(t, oversized)
	require.Nil(t, line)

	line, oversized, err = readLine(r, 32)
	require.NoError(t, err)
	require.False(t, oversized)
	require.Equal(t, "last", string(line))

	_, _, err = readLine(r, 32)
	require.ErrorIs(t, err, io.EOF)
}
