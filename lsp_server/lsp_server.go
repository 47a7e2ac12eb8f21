package lsp_server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Daedeross/maptool-script.vscode/server/analysis"
	"github.com/Daedeross/maptool-script.vscode/server/builtins"
	"github.com/Daedeross/maptool-script.vscode/server/config"
	"github.com/Daedeross/maptool-script.vscode/server/engine"
	"github.com/Daedeross/maptool-script.vscode/server/metrics"
	"github.com/Daedeross/maptool-script.vscode/server/release"
	"github.com/Daedeross/maptool-script.vscode/server/rpc"
	"github.com/Daedeross/maptool-script.vscode/server/store"
	"github.com/Daedeross/maptool-script.vscode/server/textdoc"
	"github.com/pkg/errors"
	"github.com/sourcegraph/jsonrpc2"
	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"
)

const (
	SERVER_NAME = "mtscript"

	methodSemanticTokensFull = "textDocument/semanticTokens/full"
)

type LspServer struct {
	conn      *jsonrpc2.Conn
	engine    *engine.Engine
	documents *textdoc.Documents
	settings  *config.Cache
	logger    *zap.Logger
	version   string
	doneChan  chan int

	// guards everything above except conn and doneChan; the configuration
	// fetch re-enters from its own goroutine
	mu                         sync.Mutex
	hasConfigurationCapability bool
	pendingSettings            map[uri.URI]bool
	shutdownRequested          bool
}

func NewLspServer(eng *engine.Engine, settings *config.Cache, logger *zap.Logger, version string) *LspServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings == nil {
		settings = config.NewCache(config.Default())
	}
	return &LspServer{
		engine:          eng,
		documents:       textdoc.NewDocuments(nil),
		settings:        settings,
		logger:          logger.Named("lsp"),
		version:         version,
		doneChan:        make(chan int, 1),
		pendingSettings: map[uri.URI]bool{},
	}
}

// Done delivers the exit code once the client asked the server to exit.
func (s *LspServer) Done() <-chan int {
	return s.doneChan
}

func decodePayload[T any](ctx context.Context, c *jsonrpc2.Conn, r *jsonrpc2.Request) *T {
	if r.Params == nil {
		if !r.Notif {
			c.ReplyWithError(ctx, r.ID, &jsonrpc2.Error{
				Code:    jsonrpc2.CodeInvalidParams,
				Message: "Params field is null",
			})
		}
		return nil
	}

	var payload *T
	if err := json.Unmarshal(*r.Params, &payload); err != nil || payload == nil {
		if !r.Notif {
			c.ReplyWithError(ctx, r.ID, &jsonrpc2.Error{
				Code:    jsonrpc2.CodeInvalidParams,
				Message: "Unable to decode params of method " + r.Method,
			})
		}
		return nil
	}
	return payload
}

type didChangeTextDocumentParams struct {
	TextDocument   lsp.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []textdoc.Change                    `json:"contentChanges"`
}

func (s *LspServer) Handle(ctx context.Context, c *jsonrpc2.Conn, r *jsonrpc2.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("handler panicked", zap.String("method", r.Method), zap.Any("panic", rec))
			if r.Notif {
				return
			}
			switch r.Method {
			case lsp.MethodTextDocumentHover:
				c.Reply(ctx, r.ID, json.RawMessage("null"))
			case lsp.MethodTextDocumentCompletion:
				c.Reply(ctx, r.ID, []lsp.CompletionItem{})
			default:
				c.ReplyWithError(ctx, r.ID, &jsonrpc2.Error{
					Code:    jsonrpc2.CodeInternalError,
					Message: fmt.Sprintf("%s failed: %v", r.Method, rec),
				})
			}
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case lsp.MethodInitialize:
		var params lsp.InitializeParams
		if r.Params != nil {
			if err := json.Unmarshal(*r.Params, &params); err != nil {
				c.ReplyWithError(ctx, r.ID, &jsonrpc2.Error{
					Code:    jsonrpc2.CodeInvalidParams,
					Message: "Unable to decode params of method " + r.Method,
				})
				return
			}
		}

		if ws := params.Capabilities.Workspace; ws != nil {
			s.hasConfigurationCapability = ws.Configuration
		}

		c.Reply(ctx, r.ID, lsp.InitializeResult{
			Capabilities: lsp.ServerCapabilities{
				TextDocumentSync:   lsp.TextDocumentSyncKindIncremental,
				CompletionProvider: &lsp.CompletionOptions{ResolveProvider: false},
				HoverProvider:      true,
				SemanticTokensProvider: map[string]any{
					"legend": map[string]any{
						"tokenTypes":     analysis.TokenTypes,
						"tokenModifiers": analysis.TokenModifiers,
					},
					"full": true,
				},
			},
			ServerInfo: &lsp.ServerInfo{
				Name:    SERVER_NAME,
				Version: s.version,
			},
		})
	case lsp.MethodInitialized:
		s.logger.Info("client initialized", zap.Bool("configuration", s.hasConfigurationCapability))
	case lsp.MethodShutdown:
		s.shutdownRequested = true
		c.Reply(ctx, r.ID, json.RawMessage("null"))
	case lsp.MethodExit:
		code := 1
		if s.shutdownRequested {
			code = 0
		}
		select {
		case s.doneChan <- code:
		default:
		}
	case lsp.MethodTextDocumentDidOpen:
		payload := decodePayload[lsp.DidOpenTextDocumentParams](ctx, c, r)
		if payload == nil {
			return
		}

		item := payload.TextDocument
		doc, err := s.documents.Open(item.URI, string(item.LanguageID), item.Version, item.Text)
		if err != nil {
			s.logger.Error("unable to open document", zap.String("uri", string(item.URI)), zap.Error(err))
			return
		}
		s.validate(ctx, c, doc)
	case lsp.MethodTextDocumentDidChange:
		payload := decodePayload[didChangeTextDocumentParams](ctx, c, r)
		if payload == nil {
			return
		}

		doc, err := s.documents.Change(payload.TextDocument.URI, payload.TextDocument.Version, payload.ContentChanges)
		if err != nil {
			s.logger.Warn("unable to apply changes", zap.String("uri", string(payload.TextDocument.URI)), zap.Error(err))
			return
		}
		s.validate(ctx, c, doc)
	case lsp.MethodTextDocumentDidClose:
		payload := decodePayload[lsp.DidCloseTextDocumentParams](ctx, c, r)
		if payload == nil {
			return
		}

		u := payload.TextDocument.URI
		s.documents.Close(u)
		s.engine.Close(u)
		s.settings.Drop(u)
		delete(s.pendingSettings, u)

		c.Notify(ctx, lsp.MethodTextDocumentPublishDiagnostics, lsp.PublishDiagnosticsParams{
			URI:         u,
			Diagnostics: []lsp.Diagnostic{},
		})
	case lsp.MethodWorkspaceDidChangeConfiguration:
		payload := decodePayload[lsp.DidChangeConfigurationParams](ctx, c, r)
		if payload == nil {
			return
		}

		if s.hasConfigurationCapability {
			s.settings.Clear()
		} else {
			s.settings.SetGlobal(s.settingsFromChange(payload.Settings))
		}

		for _, doc := range s.documents.All() {
			s.validate(ctx, c, doc)
		}
	case lsp.MethodTextDocumentHover:
		payload := decodePayload[lsp.HoverParams](ctx, c, r)
		if payload == nil {
			return
		}

		u := payload.TextDocument.URI
		hover, ok := s.engine.Hover(u, payload.Position, s.settings.Resolve(u))
		if !ok {
			c.Reply(ctx, r.ID, json.RawMessage("null"))
			return
		}
		c.Reply(ctx, r.ID, hover)
	case lsp.MethodTextDocumentCompletion:
		payload := decodePayload[lsp.CompletionParams](ctx, c, r)
		if payload == nil {
			return
		}

		u := payload.TextDocument.URI
		doc, ok := s.documents.Get(u)
		if !ok {
			c.Reply(ctx, r.ID, []lsp.CompletionItem{})
			return
		}
		c.Reply(ctx, r.ID, s.engine.Complete(doc, payload.Position, s.settings.Resolve(u)))
	case methodSemanticTokensFull:
		payload := decodePayload[lsp.SemanticTokensParams](ctx, c, r)
		if payload == nil {
			return
		}

		result, ok := s.engine.Sessions.Get(payload.TextDocument.URI)
		if !ok {
			c.Reply(ctx, r.ID, lsp.SemanticTokens{Data: []uint32{}})
			return
		}
		c.Reply(ctx, r.ID, lsp.SemanticTokens{ResultID: result.ResultID, Data: result.Data})
	default:
		if !r.Notif {
			c.ReplyWithError(ctx, r.ID, &jsonrpc2.Error{
				Code:    jsonrpc2.CodeMethodNotFound,
				Message: "Method not found: " + r.Method,
			})
		}
	}
}

func (s *LspServer) settingsFromChange(raw any) config.Settings {
	global := s.settings.Global()
	section := raw
	if m, ok := raw.(map[string]any); ok {
		if v, ok := m[config.SECTION]; ok {
			section = v
		}
	}

	encoded, err := json.Marshal(section)
	if err != nil {
		s.logger.Warn("unable to read settings", zap.Error(err))
		return global
	}
	settings, err := config.FromJSON(encoded, global)
	if err != nil {
		s.logger.Warn("invalid settings", zap.Error(err))
	}
	return settings
}

// validate analyzes doc with its current settings and publishes the
// diagnostics. When the client supports workspace/configuration and the
// document's settings are not cached yet, they are fetched in the background
// and the document is validated again once they arrive.
func (s *LspServer) validate(ctx context.Context, c *jsonrpc2.Conn, doc *textdoc.Document) {
	if !store.IsMacroDocument(doc.LanguageID, doc.URI) {
		s.engine.Close(doc.URI)
		return
	}

	settings, cached := s.settings.Get(doc.URI)
	if !cached {
		settings = s.settings.Global()
		if s.hasConfigurationCapability && !s.pendingSettings[doc.URI] {
			s.pendingSettings[doc.URI] = true
			go s.fetchSettings(ctx, c, doc.URI)
		}
	}

	result, err := s.engine.AnalyzeDocument(doc, settings)
	if err != nil {
		s.logger.Error("analysis failed", zap.String("uri", string(doc.URI)), zap.Error(err))
		c.Notify(ctx, lsp.MethodWindowShowMessage, lsp.ShowMessageParams{
			Type:    lsp.MessageTypeError,
			Message: err.Error(),
		})
		return
	}

	c.Notify(ctx, lsp.MethodTextDocumentPublishDiagnostics, lsp.PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     uint32(doc.Version),
		Diagnostics: result.Diagnostics,
	})
}

func (s *LspServer) fetchSettings(ctx context.Context, c *jsonrpc2.Conn, u uri.URI) {
	var results []json.RawMessage
	err := c.Call(ctx, lsp.MethodWorkspaceConfiguration, lsp.ConfigurationParams{
		Items: []lsp.ConfigurationItem{{ScopeURI: u, Section: config.SECTION}},
	}, &results)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pendingSettings, u)

	if err != nil {
		s.logger.Warn("unable to fetch settings", zap.String("uri", string(u)), zap.Error(err))
		return
	}

	var raw json.RawMessage
	if len(results) > 0 {
		raw = results[0]
	}
	settings, err := config.FromJSON(raw, s.settings.Global())
	if err != nil {
		s.logger.Warn("invalid settings", zap.String("uri", string(u)), zap.Error(err))
	}
	s.settings.Put(u, settings)

	if doc, ok := s.documents.Get(u); ok {
		s.validate(ctx, c, doc)
	}
}

type Options struct {
	// Listen serves clients over TCP instead of stdio when set.
	Listen      string
	ConfigPath  string
	MetricsAddr string
	Logger      *zap.Logger
}

// Connect serves one client over stream.
func Connect(ctx context.Context, stream jsonrpc2.ObjectStream, eng *engine.Engine, settings *config.Cache, logger *zap.Logger) *LspServer {
	srv := NewLspServer(eng, settings, logger, release.Version())
	srv.conn = jsonrpc2.NewConn(ctx, stream, srv)
	return srv
}

func (s *LspServer) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Reload validates every open document again, after the global settings
// changed underneath the server.
func (s *LspServer) Reload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range s.documents.All() {
		s.validate(ctx, s.conn, doc)
	}
}

func loadSettings(path string, logger *zap.Logger) config.Settings {
	if len(path) == 0 {
		return config.Default()
	}
	settings, err := config.Load(path)
	if err != nil {
		logger.Warn("using default settings", zap.String("path", path), zap.Error(err))
		return config.Default()
	}
	return settings
}

func Start(opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry, err := builtins.DefaultRegistry()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		sessionsMu sync.Mutex
		sessions   = map[*LspServer]struct{}{}
	)
	track := func(srv *LspServer) *LspServer {
		sessionsMu.Lock()
		defer sessionsMu.Unlock()
		sessions[srv] = struct{}{}
		go func() {
			<-srv.conn.DisconnectNotify()
			sessionsMu.Lock()
			defer sessionsMu.Unlock()
			delete(sessions, srv)
		}()
		return srv
	}

	settings := config.NewCache(loadSettings(opts.ConfigPath, logger))
	if len(opts.ConfigPath) != 0 {
		watcher := config.NewWatcher(opts.ConfigPath, logger, func(global config.Settings) {
			settings.SetGlobal(global)

			sessionsMu.Lock()
			defer sessionsMu.Unlock()
			for srv := range sessions {
				srv.Reload(ctx)
			}
		})
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("unable to watch config", zap.String("path", opts.ConfigPath), zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	if len(opts.MetricsAddr) != 0 {
		metricsServer := metrics.NewServer(opts.MetricsAddr, logger)
		if _, err := metricsServer.Start(); err != nil {
			return err
		}
		defer metricsServer.Stop(context.Background())
	}

	exitSignal := make(chan os.Signal, 1)
	signal.Notify(exitSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(exitSignal)

	if len(opts.Listen) != 0 {
		go func() {
			<-exitSignal
			cancel()
		}()

		logger.Info("listening", zap.String("addr", opts.Listen))
		// every connection gets its own documents and index
		return rpc.StartServer(ctx, opts.Listen, jsonrpc2.VSCodeObjectCodec{}, func(ctx context.Context, stream jsonrpc2.ObjectStream) *jsonrpc2.Conn {
			return track(Connect(ctx, stream, engine.New(registry, logger), settings, logger)).conn
		})
	}

	srv := track(Connect(ctx, jsonrpc2.NewBufferedStream(&rpc.CustomStream{
		ReadCloser:  os.Stdin,
		WriteCloser: os.Stdout,
	}, jsonrpc2.VSCodeObjectCodec{}), engine.New(registry, logger), settings, logger))
	defer srv.Close()

	select {
	case code := <-srv.Done():
		if code != 0 {
			return errors.New("exit requested before shutdown")
		}
		return nil
	case <-srv.conn.DisconnectNotify():
		return nil
	case <-exitSignal:
		return nil
	}
}
