package lsp_server

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/Daedeross/maptool-script.vscode/server/analysis"
	"github.com/Daedeross/maptool-script.vscode/server/config"
	"github.com/Daedeross/maptool-script.vscode/server/engine"
	"github.com/Daedeross/maptool-script.vscode/server/rpc"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"
)

const testURI = uri.URI("file:///macros/test.mts")

type testClient struct {
	*rpc.Client
	diagnostics chan lsp.PublishDiagnosticsParams
	// answers workspace/configuration requests when set
	configuration json.RawMessage
}

func Setup(t *testing.T) (*LspServer, *testClient) {
	t.Helper()

	eng, err := engine.Default(zap.NewNop())
	require.NoError(t, err)

	serverConn, clientConn := net.Pipe()
	srv := Connect(
		context.Background(),
		jsonrpc2.NewBufferedStream(serverConn, jsonrpc2.VSCodeObjectCodec{}),
		eng,
		config.NewCache(config.Default()),
		zap.NewNop(),
	)

	client := &testClient{
		Client:      &rpc.Client{},
		diagnostics: make(chan lsp.PublishDiagnosticsParams, 16),
	}
	client.OnRequest = func(ctx context.Context, c *jsonrpc2.Conn, r *jsonrpc2.Request) {
		switch r.Method {
		case lsp.MethodTextDocumentPublishDiagnostics:
			var params lsp.PublishDiagnosticsParams
			if err := json.Unmarshal(*r.Params, &params); err == nil {
				client.diagnostics <- params
			}
		case lsp.MethodWorkspaceConfiguration:
			// net.Pipe is unbuffered and the server may be writing to us
			go c.Reply(ctx, r.ID, []json.RawMessage{client.configuration})
		}
	}
	client.Conn = jsonrpc2.NewConn(
		context.Background(),
		jsonrpc2.NewBufferedStream(clientConn, jsonrpc2.VSCodeObjectCodec{}),
		client.Client,
	)

	t.Cleanup(func() {
		client.Close()
		srv.Close()
	})
	return srv, client
}

func initialize(client *testClient, params any) (lsp.InitializeResult, error) {
	var result lsp.InitializeResult
	err := client.Call(lsp.MethodInitialize, params, &result)
	if err == nil {
		client.Notify(lsp.MethodInitialized, map[string]any{})
	}
	return result, err
}

func (c *testClient) nextDiagnostics(t *testing.T) lsp.PublishDiagnosticsParams {
	t.Helper()
	select {
	case params := <-c.diagnostics:
		return params
	case <-time.After(5 * time.Second):
		t.Fatal("no diagnostics published")
		return lsp.PublishDiagnosticsParams{}
	}
}

func (c *testClient) open(t *testing.T, languageID string, text string) {
	t.Helper()
	err := c.Notify(lsp.MethodTextDocumentDidOpen, lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{
			URI:        testURI,
			LanguageID: lsp.LanguageIdentifier(languageID),
			Version:    1,
			Text:       text,
		},
	})
	require.NoError(t, err)
}

func hoverParams(line, char uint32) lsp.HoverParams {
	return lsp.HoverParams{
		TextDocumentPositionParams: lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: testURI},
			Position:     lsp.Position{Line: line, Character: char},
		},
	}
}

func TestInitialize(t *testing.T) {
	srv, client := Setup(t)

	var raw map[string]any
	require.NoError(t, client.Call(lsp.MethodInitialize, nil, &raw))

	capabilities := raw["capabilities"].(map[string]any)
	assert.Equal(t, float64(lsp.TextDocumentSyncKindIncremental), capabilities["textDocumentSync"])
	assert.Equal(t, true, capabilities["hoverProvider"])
	assert.NotNil(t, capabilities["completionProvider"])

	semantic := capabilities["semanticTokensProvider"].(map[string]any)
	assert.Equal(t, true, semantic["full"])
	legend := semantic["legend"].(map[string]any)
	assert.Len(t, legend["tokenTypes"], len(analysis.TokenTypes))

	info := raw["serverInfo"].(map[string]any)
	assert.Equal(t, SERVER_NAME, info["name"])
	assert.Equal(t, srv.version, info["version"])
}

func TestShutdownAndExit(t *testing.T) {
	srv, client := Setup(t)

	_, err := initialize(client, nil)
	require.NoError(t, err)

	var result any
	require.NoError(t, client.Call(lsp.MethodShutdown, nil, &result))
	assert.Nil(t, result)

	require.NoError(t, client.Notify(lsp.MethodExit, nil))
	assert.Equal(t, 0, <-srv.Done())
}

func TestExitWithoutShutdown(t *testing.T) {
	srv, client := Setup(t)

	_, err := initialize(client, nil)
	require.NoError(t, err)

	require.NoError(t, client.Notify(lsp.MethodExit, nil))
	assert.Equal(t, 1, <-srv.Done())
}

func TestDidOpenPublishesDiagnostics(t *testing.T) {
	_, client := Setup(t)
	_, err := initialize(client, nil)
	require.NoError(t, err)

	client.open(t, "mts", "[h: y = x]")

	params := client.nextDiagnostics(t)
	assert.Equal(t, testURI, params.URI)
	assert.Equal(t, uint32(1), params.Version)
	require.Len(t, params.Diagnostics, 1)
	assert.Equal(t, "x is not yet assigned.", params.Diagnostics[0].Message)
}

func TestDidOpenWithoutLanguageID(t *testing.T) {
	_, client := Setup(t)
	_, err := initialize(client, nil)
	require.NoError(t, err)

	client.open(t, "", "[h: y = x]")

	params := client.nextDiagnostics(t)
	assert.Equal(t, testURI, params.URI)
	require.Len(t, params.Diagnostics, 1)
	assert.Equal(t, "x is not yet assigned.", params.Diagnostics[0].Message)
}

func TestDidOpenOtherLanguage(t *testing.T) {
	srv, client := Setup(t)
	_, err := initialize(client, nil)
	require.NoError(t, err)

	client.open(t, "plaintext", "[h: y = x]")

	// requests are handled in order, so the open has been processed
	var hover *lsp.Hover
	require.NoError(t, client.Call(lsp.MethodTextDocumentHover, hoverParams(0, 4), &hover))
	assert.Nil(t, hover)
	assert.Equal(t, 0, srv.engine.Sessions.Len())
	assert.Empty(t, client.diagnostics)
}

func TestDidOpenNoPayload(t *testing.T) {
	srv, client := Setup(t)
	_, err := initialize(client, nil)
	require.NoError(t, err)

	require.NoError(t, client.Notify(lsp.MethodTextDocumentDidOpen, nil))

	var hover *lsp.Hover
	err = client.Call(lsp.MethodTextDocumentHover, nil, &hover)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "Params field is null", rpcErr.Message)
	assert.Equal(t, 0, srv.documents.Len())
}

func TestDidChange(t *testing.T) {
	_, client := Setup(t)
	_, err := initialize(client, nil)
	require.NoError(t, err)

	client.open(t, "mts", "[h: x = 1]")
	assert.Empty(t, client.nextDiagnostics(t).Diagnostics)

	err = client.Notify(lsp.MethodTextDocumentDidChange, map[string]any{
		"textDocument": lsp.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: lsp.TextDocumentIdentifier{URI: testURI},
			Version:                2,
		},
		"contentChanges": []map[string]any{{
			"range": lsp.Range{
				Start: lsp.Position{Line: 0, Character: 8},
				End:   lsp.Position{Line: 0, Character: 9},
			},
			"text": "y",
		}},
	})
	require.NoError(t, err)

	params := client.nextDiagnostics(t)
	assert.Equal(t, uint32(2), params.Version)
	require.Len(t, params.Diagnostics, 1)
	assert.Equal(t, "y is not yet assigned.", params.Diagnostics[0].Message)
}

func TestDidChangeUnknownDocument(t *testing.T) {
	_, client := Setup(t)
	_, err := initialize(client, nil)
	require.NoError(t, err)

	err = client.Notify(lsp.MethodTextDocumentDidChange, map[string]any{
		"textDocument":   map[string]any{"uri": testURI, "version": 2},
		"contentChanges": []map[string]any{{"text": "[h: x = 1]"}},
	})
	require.NoError(t, err)

	var result any
	require.NoError(t, client.Call(lsp.MethodShutdown, nil, &result))
	assert.Empty(t, client.diagnostics)
}

func TestDidClose(t *testing.T) {
	srv, client := Setup(t)
	_, err := initialize(client, nil)
	require.NoError(t, err)

	client.open(t, "mts", "[h: y = x]")
	require.Len(t, client.nextDiagnostics(t).Diagnostics, 1)

	err = client.Notify(lsp.MethodTextDocumentDidClose, lsp.DidCloseTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)

	params := client.nextDiagnostics(t)
	assert.Equal(t, testURI, params.URI)
	assert.Empty(t, params.Diagnostics)

	_, ok := srv.engine.Sessions.Get(testURI)
	assert.False(t, ok)
	assert.Empty(t, srv.engine.Index.Search("y"))
}

func TestHover(t *testing.T) {
	_, client := Setup(t)
	_, err := initialize(client, nil)
	require.NoError(t, err)

	client.open(t, "mts", "[r: abs(1)]")
	client.nextDiagnostics(t)

	var hover lsp.Hover
	require.NoError(t, client.Call(lsp.MethodTextDocumentHover, hoverParams(0, 5), &hover))
	assert.Equal(t, lsp.Markdown, hover.Contents.Kind)
	assert.Contains(t, hover.Contents.Value, "#### **abs**( num )")
}

func TestCompletion(t *testing.T) {
	_, client := Setup(t)
	_, err := initialize(client, nil)
	require.NoError(t, err)

	client.open(t, "mts", "[r: lis]")
	client.nextDiagnostics(t)

	var items []lsp.CompletionItem
	err = client.Call(lsp.MethodTextDocumentCompletion, lsp.CompletionParams{
		TextDocumentPositionParams: lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: testURI},
			Position:     lsp.Position{Line: 0, Character: 7},
		},
	}, &items)
	require.NoError(t, err)

	labels := []string{}
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	// the word being typed is itself a variable of the document
	assert.Equal(t, []string{"lis", "listGet", "listCount"}, labels)
}

func TestSemanticTokens(t *testing.T) {
	srv, client := Setup(t)
	_, err := initialize(client, nil)
	require.NoError(t, err)

	client.open(t, "mts", "[h: x = 1]")
	client.nextDiagnostics(t)

	var tokens lsp.SemanticTokens
	err = client.Call(methodSemanticTokensFull, lsp.SemanticTokensParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: testURI},
	}, &tokens)
	require.NoError(t, err)

	stored, ok := srv.engine.Sessions.Get(testURI)
	require.True(t, ok)
	assert.Equal(t, stored.ResultID, tokens.ResultID)
	assert.Equal(t, stored.Data, tokens.Data)
	assert.Len(t, tokens.Data, 5*5)
}

func TestDidChangeConfiguration(t *testing.T) {
	srv, client := Setup(t)
	_, err := initialize(client, nil)
	require.NoError(t, err)

	client.open(t, "mts", "[h: y = x]")
	client.nextDiagnostics(t)

	err = client.Notify(lsp.MethodWorkspaceDidChangeConfiguration, map[string]any{
		"settings": map[string]any{
			config.SECTION: map[string]any{"maxNumberOfProblems": 5, "fuzzyCompletion": true},
		},
	})
	require.NoError(t, err)

	// every open document is validated again
	client.nextDiagnostics(t)
	global := srv.settings.Global()
	assert.Equal(t, 5, global.MaxNumberOfProblems)
	assert.True(t, global.FuzzyCompletion)
	assert.Equal(t, config.DEFAULT_WIKI_ROOT, global.WikiURIRoot)
}

func TestConfigurationFetch(t *testing.T) {
	srv, client := Setup(t)
	client.configuration = json.RawMessage(`{"wikiUriRoot": "https://example.com/wiki"}`)

	_, err := initialize(client, map[string]any{
		"capabilities": map[string]any{
			"workspace": map[string]any{"configuration": true},
		},
	})
	require.NoError(t, err)

	client.open(t, "mts", "[h: x = 1]")

	// once with the global settings, once more when the fetch completes
	client.nextDiagnostics(t)
	client.nextDiagnostics(t)

	settings, ok := srv.settings.Get(testURI)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/wiki", settings.WikiURIRoot)
}

func TestUnknownMethod(t *testing.T) {
	_, client := Setup(t)

	var result any
	err := client.Call("$/unknownMethod", map[string]any{}, &result)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), rpcErr.Code)
}

func TestReload(t *testing.T) {
	srv, client := Setup(t)
	_, err := initialize(client, nil)
	require.NoError(t, err)

	client.open(t, "mts", "[h: a = x + y]")
	require.Len(t, client.nextDiagnostics(t).Diagnostics, 2)

	global := config.Default()
	global.MaxNumberOfProblems = 0
	srv.settings.SetGlobal(global)
	srv.Reload(context.Background())

	params := client.nextDiagnostics(t)
	assert.Len(t, params.Diagnostics, 1)
}
