package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"voice-agent/internal/agent/openai"
	"voice-agent/internal/industry"
	"voice-agent/internal/toolsim"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TokenMinter 为浏览器端 realtime 会话签发临时凭证。
type TokenMinter interface {
	MintClientSecret(ctx context.Context, session openai.RealtimeSession) (openai.ClientSecret, error)
}

type Options struct {
	Store     *industry.Store
	Simulator *toolsim.Simulator
	// Tokens 为空时 /api/realtime-token 返回 503。
	Tokens        TokenMinter
	RealtimeModel string
	Voice         string
}

// Server 暴露工具模拟、行业配置与临时凭证的 HTTP 接口。
type Server struct {
	opts Options
}

func New(opts Options) *Server {
	return &Server{opts: opts}
}

// Handler 返回挂好全部路由的 chi router。
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(requestLogging)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/tool", s.getScenario)
		api.Post("/tool", s.runTool)
		api.Get("/tool-specs", s.listToolSpecs)
		api.Get("/config", s.getConfig)
		api.Post("/config", s.setConfig)
		api.Get("/realtime-token", s.mintToken)
	})
	return r
}

// Serve 监听 addr 直到 ctx 结束，然后优雅关闭。
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		componentLog().Infof("http server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
