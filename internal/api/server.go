// Package api は管理用のHTTP APIとイベント配信を提供する
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/websocket"

	"webpool/internal/events"
	"webpool/internal/logger"
	"webpool/internal/worker"
)

// PoolInspector はプールの状態を参照するためのインターフェース。*worker.Pool が満たす
type PoolInspector interface {
	NumWorkers() int
	QueueSize() int
	Closed() bool
	Workers() []worker.WorkerInfo
}

// Server は管理用APIサーバー
type Server struct {
	addr   string
	pool   PoolInspector
	bus    *events.Bus
	router chi.Router
	server *http.Server
}

// NewServer は新しいAPIサーバーを作成する。bus が nil なら /ws は提供しない
func NewServer(addr string, pool PoolInspector, bus *events.Bus) *Server {
	s := &Server{
		addr: addr,
		pool: pool,
		bus:  bus,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/workers", s.handleWorkers)
	if s.bus != nil {
		r.Handle("/ws", websocket.Handler(s.handleWebSocket))
	}
	return r
}

// Handler はルーターを返す
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start はサーバーを開始し、ctx がキャンセルされるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("", "Admin API starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Workers    int  `json:"workers"`
	Queued     int  `json:"queued"`
	Closed     bool `json:"closed"`
	Idle       int  `json:"idle"`
	Busy       int  `json:"busy"`
	Terminated int  `json:"terminated"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Workers: s.pool.NumWorkers(),
		Queued:  s.pool.QueueSize(),
		Closed:  s.pool.Closed(),
	}

	for _, info := range s.pool.Workers() {
		switch info.State {
		case worker.StateIdle:
			resp.Idle++
		case worker.StateBusy:
			resp.Busy++
		case worker.StateTerminated:
			resp.Terminated++
		}
	}

	s.writeJSON(w, resp)
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.pool.Workers())
}

// handleWebSocket はプールのイベントをクライアントに配信する
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	defer ws.Close()

	// クライアントの切断を検知する
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			var msg string
			if err := websocket.Message.Receive(ws, &msg); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(ws, ev); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("", "Failed to encode JSON: %v", err)
	}
}
