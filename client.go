package main

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 4096
	sendBufSize        = 256
	maxMessagesPerSec  = 60
	maxSessionNameLen  = 30
	defaultSessionName = "Squadron"
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	playerID   PlayerID
	sessionID  string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	log        zerolog.Logger
}

// NewClient creates a new Client. Connections start as guests.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	pid := GuestPlayerID()
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		playerID:   pid,
		remoteAddr: remoteAddr,
		log:        hub.log.With().Str("ip", remoteAddr).Str("player", string(pid)).Logger(),
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("ws read error")
			}
			break
		}

		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.Warn().Msg("rate limit exceeded, disconnecting")
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF prefix marks a binary frame from SendBinary
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error().Err(err).Msg("marshal message")
		return
	}
	c.enqueue(data)
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
func (c *Client) SendBinary(data []byte) {
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	c.enqueue(msg)
}

// enqueue drops the message when the client is too slow. The send channel
// may already be closed by the hub, hence the recover.
func (c *Client) enqueue(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(code string, err error) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Code: code, Msg: err.Error()}})
}

func (c *Client) sendOK(cmd string) {
	c.SendJSON(Envelope{T: MsgOK, Data: map[string]string{"cmd": cmd}})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Debug().Err(err).Msg("bad envelope")
		c.sendError(CodeBadRequest, errors.New("malformed message"))
		return
	}

	switch env.T {
	case MsgList:
		c.handleList()
	case MsgCreate:
		c.handleCreate(env.D)
	case MsgEnter:
		c.handleEnter(env.D)
	case MsgCheck:
		c.handleCheck(env.D)
	case MsgLeave:
		c.handleLeave()
	case MsgJoin, MsgThrust, MsgTurret, MsgAgain:
		c.handleCommand(env.T, env.D)
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	default:
		c.sendError(CodeBadRequest, errors.New("unknown message type"))
	}
}

func (c *Client) handleList() {
	c.SendJSON(Envelope{T: MsgSessions, Data: c.hub.sessions.ListSessions()})
}

func (c *Client) handleCreate(data json.RawMessage) {
	var msg CreateMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError(CodeBadRequest, err)
			return
		}
	}
	sname := msg.SessionName
	if sname == "" {
		sname = defaultSessionName
	}
	if len(sname) > maxSessionNameLen {
		sname = sname[:maxSessionNameLen]
	}

	sess := c.hub.sessions.CreateSession(sname)
	if sess == nil {
		c.sendError(CodeTooMany, errors.New("too many active sessions"))
		return
	}
	c.SendJSON(Envelope{T: MsgCreated, Data: map[string]string{"sid": sess.ID}})
}

func (c *Client) handleEnter(data json.RawMessage) {
	var msg SessionMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(CodeBadRequest, err)
		return
	}
	sess := c.hub.sessions.GetSession(msg.SID)
	if sess == nil {
		c.sendError(CodeNoSession, errors.New("session not found"))
		return
	}
	if c.sessionID != "" && c.sessionID != sess.ID {
		c.hub.sessions.Release(c.sessionID, c)
	}
	c.sessionID = sess.ID
	sess.Game.Attach(c.playerID, c)
	c.log.Info().Str("session", sess.ID).Msg("entered session")
	c.SendJSON(Envelope{T: MsgEntered, Data: EnteredMsg{SID: sess.ID, PlayerID: c.playerID}})

	// first snapshot right away instead of on the next broadcast tick
	state := sess.Game.State(c.playerID)
	data, err := msgpack.Marshal(&state)
	if err != nil {
		c.log.Error().Err(err).Msg("encode state")
		return
	}
	c.SendBinary(data)
}

func (c *Client) handleCheck(data json.RawMessage) {
	var msg SessionMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(CodeBadRequest, err)
		return
	}
	sess := c.hub.sessions.GetSession(msg.SID)
	if sess == nil {
		c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{SID: msg.SID, Exists: false}})
		return
	}
	c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{
		SID:     msg.SID,
		Exists:  true,
		Name:    sess.Name,
		Players: sess.Game.ClientCount(),
	}})
}

func (c *Client) handleLeave() {
	if c.sessionID == "" {
		return
	}
	c.hub.sessions.Release(c.sessionID, c)
	c.sessionID = ""
}

// handleCommand forwards a game command to the attached session
func (c *Client) handleCommand(cmd string, data json.RawMessage) {
	if c.sessionID == "" {
		c.sendError(CodeNotJoined, ErrNotJoined)
		return
	}
	sess := c.hub.sessions.GetSession(c.sessionID)
	if sess == nil {
		c.sessionID = ""
		c.sendError(CodeNoSession, errors.New("session not found"))
		return
	}

	var err error
	switch cmd {
	case MsgJoin:
		err = sess.Game.Join(c.playerID)
	case MsgAgain:
		err = sess.Game.PlayAgain(c.playerID)
	case MsgThrust, MsgTurret:
		var msg LocationMsg
		if len(data) > 0 {
			if uerr := json.Unmarshal(data, &msg); uerr != nil {
				c.sendError(CodeBadRequest, uerr)
				return
			}
		}
		if cmd == MsgThrust {
			err = sess.Game.Thrust(c.playerID, msg.Location)
		} else {
			err = sess.Game.Turret(c.playerID, msg.Location)
		}
	}
	if err != nil {
		c.sendError(errorCode(err), err)
		return
	}
	c.sendOK(cmd)
}

// errorCode maps command errors onto the codes clients switch on
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyJoined):
		return CodeAlreadyJoined
	case errors.Is(err, ErrGameOver):
		return CodeGameOver
	case errors.Is(err, ErrGameInProgress):
		return CodeInProgress
	case errors.Is(err, ErrNotNavigator):
		return CodeNotNavigator
	case errors.Is(err, ErrNotGunner):
		return CodeNotGunner
	case errors.Is(err, ErrNotJoined):
		return CodeNotJoined
	case errors.Is(err, ErrBadUsername), errors.Is(err, ErrBadPassword),
		errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrRateLimited), errors.Is(err, ErrInvalidToken):
		return CodeAuth
	}
	return CodeInternal
}

// authenticated switches the connection to the account's player id. The
// id is the username so a reconnecting pilot gets their ship back.
func (c *Client) authenticated(id int64, username, token string) {
	c.playerID = PlayerID(username)
	c.log = c.hub.log.With().Str("ip", c.remoteAddr).Str("player", username).Int64("account", id).Logger()
	c.log.Info().Msg("signed in")
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{
		Token:    token,
		Username: username,
		PlayerID: id,
	}})
}

// authReady reports whether the connection may change identity now
func (c *Client) authReady() bool {
	if c.hub.auth == nil {
		c.sendError(CodeAuth, errors.New("accounts are disabled"))
		return false
	}
	if c.sessionID != "" {
		c.sendError(CodeBadRequest, errors.New("leave the session before signing in"))
		return false
	}
	return true
}

func (c *Client) handleRegister(data json.RawMessage) {
	if !c.authReady() {
		return
	}
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(CodeBadRequest, err)
		return
	}
	username := strings.TrimSpace(msg.Username)
	id, token, err := c.hub.auth.Register(username, msg.Password)
	if err != nil {
		c.sendError(errorCode(err), err)
		return
	}
	c.authenticated(id, username, token)
}

func (c *Client) handleLogin(data json.RawMessage) {
	if !c.authReady() {
		return
	}
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(CodeBadRequest, err)
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		c.sendError(errorCode(err), err)
		return
	}
	c.authenticated(id, msg.Username, token)
}

func (c *Client) handleAuth(data json.RawMessage) {
	if !c.authReady() {
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(CodeBadRequest, err)
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError(CodeAuth, ErrInvalidToken)
		return
	}
	c.authenticated(id, username, msg.Token)
}
