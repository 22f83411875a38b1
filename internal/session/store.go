// Package session replaces browser local storage: a session is the pair of
// entries "token" and "role" left behind by a successful login.
package session

import (
	"context"

	"github.com/jwalitptl/innoguard/internal/model"
	apperrors "github.com/jwalitptl/innoguard/pkg/errors"
)

// Storage keys, as in the browser client.
const (
	KeyToken = "token"
	KeyRole  = "role"
)

// Store persists sessions by an opaque id (the session cookie in the web
// host, unused by the file store).
type Store interface {
	Load(ctx context.Context, id string) (*model.Session, error)
	Save(ctx context.Context, id string, s *model.Session) error
}

// Source hands the dashboard the session it should use for a request.
type Source interface {
	Session(ctx context.Context) (*model.Session, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*model.Session, error)

func (f SourceFunc) Session(ctx context.Context) (*model.Session, error) {
	return f(ctx)
}

// Bind returns a Source reading session id from store.
func Bind(store Store, id string) Source {
	return SourceFunc(func(ctx context.Context) (*model.Session, error) {
		return store.Load(ctx, id)
	})
}

// Static returns a Source that always yields s. A nil or tokenless session
// yields the no-session error.
func Static(s *model.Session) Source {
	return SourceFunc(func(context.Context) (*model.Session, error) {
		if !s.HasToken() {
			return nil, apperrors.NewNoSession()
		}
		return s, nil
	})
}

func fromEntries(entries map[string]string) (*model.Session, error) {
	token := entries[KeyToken]
	if token == "" {
		return nil, apperrors.NewNoSession()
	}
	return &model.Session{Token: token, Role: model.Role(entries[KeyRole])}, nil
}

func toEntries(s *model.Session) map[string]string {
	return map[string]string{
		KeyToken: s.Token,
		KeyRole:  string(s.Role),
	}
}
