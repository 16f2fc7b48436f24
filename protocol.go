package main

import "encoding/json"

// Client -> Server message types
const (
	MsgCreate   = "create" // create session
	MsgEnter    = "enter"  // attach to a session as a spectator
	MsgList     = "list"   // list sessions
	MsgCheck    = "check"  // check if session exists
	MsgLeave    = "leave"
	MsgJoin     = "join" // take a ship in the attached session
	MsgThrust   = "thrust"
	MsgTurret   = "turret"
	MsgAgain    = "again"
	MsgAuth     = "auth"
	MsgRegister = "register"
	MsgLogin    = "login"
)

// Server -> Client message types. State snapshots go out as binary msgpack frames.
const (
	MsgCreated  = "created"
	MsgEntered  = "entered"
	MsgSessions = "sessions"
	MsgChecked  = "checked"
	MsgOK       = "ok"
	MsgAuthOK   = "auth_ok"
	MsgError    = "error"
	MsgEvent    = "event"
)

// Error codes carried in ErrorMsg
const (
	CodeBadRequest    = "bad_request"
	CodeNoSession     = "no_session"
	CodeTooMany       = "too_many_sessions"
	CodeNotJoined     = "not_joined"
	CodeAlreadyJoined = "already_joined"
	CodeGameOver      = "game_over"
	CodeInProgress    = "game_in_progress"
	CodeNotNavigator  = "not_navigator"
	CodeNotGunner     = "not_gunner"
	CodeAuth          = "auth_failed"
	CodeInternal      = "internal"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages. D stays raw until the type is known.
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// CreateMsg asks for a new session
type CreateMsg struct {
	SessionName string `json:"sname"`
}

// SessionMsg names a session for enter and check
type SessionMsg struct {
	SID string `json:"sid"`
}

// LocationMsg carries the optional point for thrust and turret. A missing
// location stops thrusting.
type LocationMsg struct {
	Location *Point2D `json:"location,omitempty"`
}

// ShipState is one ship in a snapshot, friendly or enemy
type ShipState struct {
	ID          int        `json:"id" msgpack:"id"`
	Type        EntityType `json:"type" msgpack:"type"`
	Location    Point2D    `json:"location" msgpack:"location"`
	Angle       float64    `json:"angle" msgpack:"angle"`
	TurretAngle float64    `json:"turretAngle,omitempty" msgpack:"turretAngle,omitempty"`
	Lives       int        `json:"lives,omitempty" msgpack:"lives,omitempty"`
	Navigator   PlayerID   `json:"navigator,omitempty" msgpack:"navigator,omitempty"`
	Gunner      PlayerID   `json:"gunner,omitempty" msgpack:"gunner,omitempty"`
}

// ProjectileState is one projectile in a snapshot
type ProjectileState struct {
	ID       int        `json:"id" msgpack:"id"`
	Type     EntityType `json:"type" msgpack:"type"`
	Location Point2D    `json:"location" msgpack:"location"`
	Angle    float64    `json:"angle" msgpack:"angle"`
}

// PlayerShipState tells a client which ship is theirs and which seat they hold
type PlayerShipState struct {
	ID   int  `json:"id" msgpack:"id"`
	Role Role `json:"role" msgpack:"role"`
}

// GameState is the per-player snapshot
type GameState struct {
	Ships       []ShipState       `json:"ships" msgpack:"ships"`
	Projectiles []ProjectileState `json:"projectiles" msgpack:"projectiles"`
	Score       int               `json:"score" msgpack:"score"`
	GameOver    bool              `json:"gameOver" msgpack:"gameOver"`
	PlayerShip  *PlayerShipState  `json:"playerShip,omitempty" msgpack:"playerShip,omitempty"`
	Tick        uint64            `json:"tick" msgpack:"tick"`
}

// EventMsg delivers a named event to the player it addresses
type EventMsg struct {
	Name string `json:"name"`
}

// SessionInfo is used in the session list
type SessionInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Players int    `json:"players"`
}

// EnteredMsg confirms a connection is attached to a session
type EnteredMsg struct {
	SID      string   `json:"sid"`
	PlayerID PlayerID `json:"pid"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// CheckedMsg is the response to a session check
type CheckedMsg struct {
	SID     string `json:"sid"`
	Exists  bool   `json:"exists"`
	Name    string `json:"name,omitempty"`
	Players int    `json:"players,omitempty"`
}

// RegisterMsg and LoginMsg carry account credentials
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg resumes an account from a stored token
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg is returned after a successful register, login or auth
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	PlayerID int64  `json:"pid"`
}
