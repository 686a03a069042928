package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn        *websocket.Conn
	send        chan *Message
	playerID    string
	tableID     string
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	gameService *GameService
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, gameService *GameService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:        conn,
		send:        make(chan *Message, 256),
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
		gameService: gameService,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed when the connection shuts down.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.cancel()
		close(c.send)
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client. A full buffer closes the
// connection.
func (c *Connection) SendMessage(msg *Message) error {
	c.mu.RLock()
	if c.ctx.Err() != nil {
		c.mu.RUnlock()
		return ErrConnectionClosed
	}
	select {
	case c.send <- msg:
		c.mu.RUnlock()
		return nil
	default:
	}
	c.mu.RUnlock()

	c.logger.Warn("Connection send buffer full, closing connection", "player", c.GetPlayer())
	_ = c.Close()
	return ErrConnectionClosed
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetTable associates this connection with a table
func (c *Connection) SetTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
}

// GetTable returns the associated table ID
func (c *Connection) GetTable() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// decode unmarshals msg.Data, replying with an error on failure.
func decode[T any](c *Connection, msg *Message, v *T) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.sendError(msg.RequestID, "invalid_message", "Failed to parse "+msg.Type.String()+" data")
		return false
	}
	return true
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	if msg.Type != MessageTypeAuth && msg.Type != MessageTypeListTables && c.GetPlayer() == "" {
		c.sendError(msg.RequestID, "not_authenticated", "Must authenticate first")
		return
	}

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if decode(c, msg, &data) {
			c.handleAuth(msg.RequestID, data)
		}

	case MessageTypeJoinTable:
		var data JoinTableData
		if decode(c, msg, &data) {
			c.handleJoinTable(msg.RequestID, data)
		}

	case MessageTypeSpectate:
		var data SpectateData
		if decode(c, msg, &data) {
			c.handleSpectate(msg.RequestID, data)
		}

	case MessageTypeLeaveTable:
		var data LeaveTableData
		if decode(c, msg, &data) {
			c.handleLeaveTable(msg.RequestID, data)
		}

	case MessageTypeListTables:
		c.reply(msg.RequestID, MessageTypeTableList, TableListData{Tables: c.gameService.ListTables()})

	case MessageTypePlayerAction:
		var data PlayerActionData
		if decode(c, msg, &data) {
			c.handlePlayerAction(msg.RequestID, data)
		}

	case MessageTypeVote:
		var data VoteData
		if decode(c, msg, &data) {
			c.handleVote(msg.RequestID, data)
		}

	default:
		c.sendError(msg.RequestID, "unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// reply sends a response carrying the request's id.
func (c *Connection) reply(requestID string, typ MessageType, data any) {
	msg, err := NewMessage(typ, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", typ, "error", err)
		return
	}
	msg.RequestID = requestID
	_ = c.SendMessage(msg)
}

// sendError sends an error message to the client
func (c *Connection) sendError(requestID, code, message string) {
	c.reply(requestID, MessageTypeError, ErrorData{Code: code, Message: message})
}

func (c *Connection) handleAuth(requestID string, data AuthData) {
	c.logger.Info("Auth request", "playerName", data.PlayerName)

	if data.PlayerName == "" {
		c.reply(requestID, MessageTypeAuthResponse, AuthResponseData{Error: "Player name required"})
		return
	}
	if current := c.GetPlayer(); current != "" && current != data.PlayerName {
		c.reply(requestID, MessageTypeAuthResponse, AuthResponseData{Error: "Already authenticated as " + current})
		return
	}

	c.SetPlayer(data.PlayerName)
	c.reply(requestID, MessageTypeAuthResponse, AuthResponseData{Success: true, PlayerID: data.PlayerName})
}

func (c *Connection) handleJoinTable(requestID string, data JoinTableData) {
	player := c.GetPlayer()
	c.logger.Info("Join table request", "tableId", data.TableID, "player", player)

	if current := c.GetTable(); current != "" && current != data.TableID {
		c.sendError(requestID, "already_seated", "Leave table "+current+" first")
		return
	}
	seat := -1
	if data.SeatNumber != nil {
		seat = *data.SeatNumber
	}

	// Set before joining so the first table_state reaches this connection.
	c.SetTable(data.TableID)
	seat, err := c.gameService.JoinTable(data.TableID, player, seat, data.BuyIn)
	if err != nil {
		c.SetTable("")
		c.sendError(requestID, errorCode(err), err.Error())
		return
	}
	c.reply(requestID, MessageTypeTableJoined, TableJoinedData{TableID: data.TableID, SeatNumber: seat})
}

func (c *Connection) handleSpectate(requestID string, data SpectateData) {
	player := c.GetPlayer()
	if current := c.GetTable(); current != "" && current != data.TableID {
		c.sendError(requestID, "already_seated", "Leave table "+current+" first")
		return
	}

	c.SetTable(data.TableID)
	if err := c.gameService.Spectate(data.TableID, player); err != nil {
		c.SetTable("")
		c.sendError(requestID, errorCode(err), err.Error())
		return
	}
	c.reply(requestID, MessageTypeTableJoined, TableJoinedData{TableID: data.TableID, SeatNumber: -1, Spectator: true})
}

func (c *Connection) handleLeaveTable(requestID string, data LeaveTableData) {
	player := c.GetPlayer()
	c.logger.Info("Leave table request", "tableId", data.TableID, "player", player)

	if err := c.gameService.LeaveTable(data.TableID, player); err != nil {
		c.sendError(requestID, errorCode(err), err.Error())
		return
	}
	c.SetTable("")
	c.reply(requestID, MessageTypeTableLeft, TableLeftData{TableID: data.TableID})
}

func (c *Connection) handlePlayerAction(requestID string, data PlayerActionData) {
	player := c.GetPlayer()
	c.logger.Debug("Player action", "player", player, "action", data.Action, "amount", data.Amount)

	if err := c.gameService.SubmitAction(data.TableID, player, data.Action, data.Amount); err != nil {
		c.reply(requestID, MessageTypeActionRejected, ActionRejectedData{
			TableID: data.TableID,
			Code:    errorCode(err),
			Message: err.Error(),
		})
		return
	}
	c.reply(requestID, MessageTypeActionAccepted, ActionAcceptedData{
		TableID: data.TableID,
		Action:  data.Action,
		Amount:  data.Amount,
	})
}

func (c *Connection) handleVote(requestID string, data VoteData) {
	if err := c.gameService.Vote(data.TableID, c.GetPlayer(), data.Agree); err != nil {
		c.reply(requestID, MessageTypeActionRejected, ActionRejectedData{
			TableID: data.TableID,
			Code:    errorCode(err),
			Message: err.Error(),
		})
		return
	}
	c.reply(requestID, MessageTypeActionAccepted, ActionAcceptedData{TableID: data.TableID, Action: "vote"})
}
