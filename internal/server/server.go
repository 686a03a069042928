package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdem-engine/internal/statistics"
	"github.com/lox/holdem-engine/internal/store"
)

// Server accepts WebSocket clients and serves the HTTP API.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	gameService *GameService
	stats       *statistics.Aggregator
	hands       store.HandStore
}

// Option configures a Server.
type Option func(*Server)

// WithStatistics exposes an aggregator on /stats.
func WithStatistics(stats *statistics.Aggregator) Option {
	return func(s *Server) { s.stats = stats }
}

// WithHandStore exposes stored hands on /tables/{id}/hands and /hands/{id}.
func WithHandStore(hs store.HandStore) Option {
	return func(s *Server) { s.hands = hs }
}

// NewServer creates a server for the given game service and makes itself the
// service's notifier.
func NewServer(addr string, gameService *GameService, logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			// Bots connect from anywhere.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		gameService: gameService,
	}
	for _, opt := range opts {
		opt(s)
	}
	gameService.SetNotifier(s)
	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("Starting server", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeConnections()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Run tracks connections until ctx is cancelled. Start calls it; tests
// serving Handler directly run it themselves.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, ok := s.connections[conn]
			delete(s.connections, conn)
			total := len(s.connections)
			s.mu.Unlock()
			if !ok {
				continue
			}

			playerID, tableID := conn.GetPlayer(), conn.GetTable()
			if playerID != "" && tableID != "" && !s.playerConnected(playerID) {
				s.logger.Info("Cleaning up disconnected player", "player", playerID, "table", tableID)
				_ = s.gameService.LeaveTable(tableID, playerID)
			}
			_ = conn.Close()
			s.logger.Info("Client disconnected", "total", total)

		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) closeConnections() {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.gameService)
	s.register <- client
	client.Start()

	go func() {
		<-client.Done()
		s.unregister <- client
	}()
}

// SendToPlayer sends a message to every connection of a player.
func (s *Server) SendToPlayer(playerID string, msg *Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := false
	var errs []error
	for conn := range s.connections {
		if conn.GetPlayer() == playerID {
			found = true
			if err := conn.SendMessage(msg); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if !found {
		return fmt.Errorf("player not found: %s", playerID)
	}
	return errors.Join(errs...)
}

// TableViewers returns the players connected to a table, seated or not.
func (s *Server) TableViewers(tableID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var players []string
	for conn := range s.connections {
		p := conn.GetPlayer()
		if conn.GetTable() == tableID && p != "" && !seen[p] {
			seen[p] = true
			players = append(players, p)
		}
	}
	return players
}

func (s *Server) playerConnected(playerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.connections {
		if conn.GetPlayer() == playerID {
			return true
		}
	}
	return false
}

// ConnectionCount returns the number of open connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}
