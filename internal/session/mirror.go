// Package session mirrors the login state of a visitor into their key-value
// namespace, next to the wishlist.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/terra-clan/projecthub/internal/kv"
	"github.com/terra-clan/projecthub/internal/models"
)

// Keys of the login mirror
const (
	KeyLoginData   = "loginData"
	KeyAuthToken   = "authToken"
	KeyUserData    = "userData"
	KeyIsLoggedIn  = "isLoggedIn"
	KeyStudentInfo = "studentInfo"
)

// LoginData is the record stored under KeyLoginData
type LoginData struct {
	User       *models.Account `json:"user"`
	Token      string          `json:"token"`
	LoginTime  time.Time       `json:"loginTime"`
	IsLoggedIn bool            `json:"isLoggedIn"`
}

// Status is the result of the authentication check
type Status struct {
	LoggedIn  bool            `json:"isLoggedIn"`
	User      *models.Account `json:"user,omitempty"`
	LoginTime *time.Time      `json:"loginTime,omitempty"`
}

// Mirror reads and writes the login keys of one visitor
type Mirror struct {
	store kv.Store
}

// NewMirror creates a mirror over a visitor namespace
func NewMirror(store kv.Store) *Mirror {
	return &Mirror{store: store}
}

// Save records a successful login
func (m *Mirror) Save(ctx context.Context, result models.AuthResult, now time.Time) error {
	data := LoginData{
		User:       result.User,
		Token:      result.Token,
		LoginTime:  now.UTC(),
		IsLoggedIn: true,
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode login data: %w", err)
	}

	if err := m.store.Set(ctx, KeyLoginData, string(raw)); err != nil {
		return err
	}
	if result.Token != "" {
		if err := m.store.Set(ctx, KeyAuthToken, result.Token); err != nil {
			return err
		}
	}
	if result.User != nil {
		user, err := json.Marshal(result.User.Profile())
		if err != nil {
			return fmt.Errorf("failed to encode user data: %w", err)
		}
		if err := m.store.Set(ctx, KeyUserData, string(user)); err != nil {
			return err
		}
	}
	return m.store.Set(ctx, KeyIsLoggedIn, "true")
}

// Clear removes every login key
func (m *Mirror) Clear(ctx context.Context) error {
	return m.store.Delete(ctx, KeyLoginData, KeyAuthToken, KeyUserData, KeyIsLoggedIn)
}

// Status performs the authentication check: isLoggedIn must be "true" and
// loginData must be present. Nothing is verified against the server.
func (m *Mirror) Status(ctx context.Context) (Status, error) {
	flag, _, err := m.store.Get(ctx, KeyIsLoggedIn)
	if err != nil {
		return Status{}, err
	}
	raw, ok, err := m.store.Get(ctx, KeyLoginData)
	if err != nil {
		return Status{}, err
	}
	if flag != "true" || !ok || raw == "" {
		return Status{}, nil
	}

	var data LoginData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		slog.Warn("unreadable login data", "error", err)
		return Status{}, nil
	}
	st := Status{LoggedIn: true, User: data.User}
	if !data.LoginTime.IsZero() {
		st.LoginTime = &data.LoginTime
	}
	return st, nil
}

// Token returns the stored auth token, or "" when absent
func (m *Mirror) Token(ctx context.Context) (string, error) {
	token, _, err := m.store.Get(ctx, KeyAuthToken)
	return token, err
}

// Profile resolves the proposal profile from userData, then studentInfo.
// Missing or unreadable records yield an empty profile; placeholders are
// applied when the proposal is generated.
func (m *Mirror) Profile(ctx context.Context) (models.UserProfile, error) {
	for _, key := range []string{KeyUserData, KeyStudentInfo} {
		raw, ok, err := m.store.Get(ctx, key)
		if err != nil {
			return models.UserProfile{}, err
		}
		if !ok {
			continue
		}

		var rec struct {
			models.UserProfile
			FullName string `json:"fullName"`
		}
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			slog.Warn("unreadable profile record", "key", key, "error", err)
			continue
		}
		if rec.Name == "" {
			rec.Name = rec.FullName
		}
		return rec.UserProfile, nil
	}
	return models.UserProfile{}, nil
}
