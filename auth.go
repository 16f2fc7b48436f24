package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpiry        = 7 * 24 * time.Hour
	bcryptCost       = 12
	minPasswordLen   = 4
	minUsernameLen   = 2
	maxUsernameLen   = 16
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
	jwtSecretKey     = "jwt_secret"
)

var (
	ErrBadUsername        = fmt.Errorf("username must be %d-%d letters, digits or underscores", minUsernameLen, maxUsernameLen)
	ErrBadPassword        = fmt.Errorf("password must be at least %d characters", minPasswordLen)
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrRateLimited        = errors.New("too many login attempts, try again later")
	ErrInvalidToken       = errors.New("invalid token")
)

// Usernames double as player ids in the game, so they never contain the
// '-' that guest ids use.
var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Auth handles accounts and session tokens
type Auth struct {
	db        *DB
	jwtSecret []byte
	cost      int
	log       zerolog.Logger

	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates a new Auth handler backed by db
func NewAuth(db *DB, logger zerolog.Logger) (*Auth, error) {
	a := &Auth{
		db:      db,
		cost:    bcryptCost,
		log:     logger.With().Str("component", "auth").Logger(),
		rateMap: make(map[string]*rateEntry),
	}
	secret, err := a.loadOrCreateSecret()
	if err != nil {
		return nil, err
	}
	a.jwtSecret = secret
	return a, nil
}

// loadOrCreateSecret keeps tokens valid across restarts by persisting the
// signing key in the settings table.
func (a *Auth) loadOrCreateSecret() ([]byte, error) {
	if h := a.db.GetSetting(jwtSecretKey); h != "" {
		if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
			return b, nil
		}
		a.log.Warn().Msg("stored jwt secret is malformed, generating a new one")
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	if err := a.db.SetSetting(jwtSecretKey, hex.EncodeToString(secret)); err != nil {
		a.log.Warn().Err(err).Msg("could not persist jwt secret")
	}
	return secret, nil
}

// Register creates a new account and returns its id and a token
func (a *Auth) Register(username, password string) (int64, string, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen || len(username) > maxUsernameLen || !usernameRe.MatchString(username) {
		return 0, "", ErrBadUsername
	}
	if len(password) < minPasswordLen {
		return 0, "", ErrBadPassword
	}

	exists, err := a.db.UsernameExists(username)
	if err != nil {
		return 0, "", fmt.Errorf("check username: %w", err)
	}
	if exists {
		return 0, "", ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return 0, "", fmt.Errorf("hash password: %w", err)
	}
	id, err := a.db.CreatePlayer(username, string(hash))
	if err != nil {
		return 0, "", err
	}
	token, err := a.generateToken(id, username)
	if err != nil {
		return 0, "", err
	}
	a.log.Info().Str("username", username).Int64("pid", id).Msg("account registered")
	return id, token, nil
}

// Login checks credentials and returns the account id and a fresh token
func (a *Auth) Login(username, password, ip string) (int64, string, error) {
	if !a.checkRate(ip) {
		return 0, "", ErrRateLimited
	}

	player, err := a.db.GetPlayerByUsername(username)
	if err != nil {
		return 0, "", err
	}
	if player == nil || player.PassHash == "" {
		return 0, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(player.PassHash), []byte(password)); err != nil {
		return 0, "", ErrInvalidCredentials
	}

	token, err := a.generateToken(player.ID, player.Username)
	if err != nil {
		return 0, "", err
	}
	return player.ID, token, nil
}

// ValidateToken returns the account id and username a token was issued for
func (a *Auth) ValidateToken(tokenStr string) (int64, string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", ErrInvalidToken
	}
	pid, ok := claims["pid"].(float64)
	if !ok {
		return 0, "", ErrInvalidToken
	}
	username, ok := claims["usr"].(string)
	if !ok {
		return 0, "", ErrInvalidToken
	}
	return int64(pid), username, nil
}

func (a *Auth) generateToken(playerID int64, username string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"pid": playerID,
		"usr": username,
		"exp": now.Add(jwtExpiry).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}

// GuestPlayerID returns a fresh id for an unauthenticated connection
func GuestPlayerID() PlayerID {
	return PlayerID("guest-" + GenerateID())
}
