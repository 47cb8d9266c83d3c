// Package auth is the local login gate. Nothing is verified against any
// authority: it validates input and decides what is remembered on disk.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

const (
	Namespace     = "auth_data"
	KeyLogin      = "login"
	KeyPassword   = "password"
	KeyRememberMe = "remember_me"
)

// ErrEmptyCredentials is returned when login or password is empty.
var ErrEmptyCredentials = errors.New("login and password must not be empty")

// Prefs is the key-value namespace credentials are kept in.
type Prefs interface {
	String(ctx context.Context, key, fallback string) (string, error)
	Bool(ctx context.Context, key string, fallback bool) (bool, error)
	Put(ctx context.Context, values map[string]string) error
}

type Credentials struct {
	Login    string
	Password string
	Remember bool
}

type Gate struct {
	prefs Prefs
	log   *zap.SugaredLogger
}

func NewGate(p Prefs, log *zap.SugaredLogger) *Gate {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Gate{prefs: p, log: log}
}

// Load returns what was remembered from the last successful login.
func (g *Gate) Load(ctx context.Context) (Credentials, error) {
	var (
		c   Credentials
		err error
	)
	if c.Login, err = g.prefs.String(ctx, KeyLogin, ""); err != nil {
		return Credentials{}, fmt.Errorf("load login: %w", err)
	}
	if c.Password, err = g.prefs.String(ctx, KeyPassword, ""); err != nil {
		return Credentials{}, fmt.Errorf("load password: %w", err)
	}
	if c.Remember, err = g.prefs.Bool(ctx, KeyRememberMe, false); err != nil {
		return Credentials{}, fmt.Errorf("load remember flag: %w", err)
	}
	return c, nil
}

// Login validates c and persists it. Without Remember the stored login and
// password are overwritten with empty strings. A declined login writes
// nothing.
func (g *Gate) Login(ctx context.Context, c Credentials) error {
	if c.Login == "" || c.Password == "" {
		g.log.Infow("login declined", "reason", "empty field")
		return ErrEmptyCredentials
	}

	stored := c
	if !c.Remember {
		stored.Login, stored.Password = "", ""
	}
	err := g.prefs.Put(ctx, map[string]string{
		KeyLogin:      stored.Login,
		KeyPassword:   stored.Password,
		KeyRememberMe: strconv.FormatBool(stored.Remember),
	})
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	g.log.Infow("login accepted", "remember", c.Remember)
	return nil
}
