package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/ambulance-fleet-api/internal/apperror"
	"github.com/iliyamo/ambulance-fleet-api/internal/model"
	"github.com/iliyamo/ambulance-fleet-api/internal/queue"
	"github.com/iliyamo/ambulance-fleet-api/internal/repository"
	"github.com/iliyamo/ambulance-fleet-api/internal/utils"
)

const msgInvalidCredentials = "invalid credentials"

// Credential is a signed token together with the session it addresses.
type Credential struct {
	Token   string
	Session model.Session
}

// ExpiresAt is the absolute expiry of the credential.
func (c Credential) ExpiresAt() time.Time { return c.Session.ValidUntil }

// LoginResult is what a successful login hands back to the HTTP layer.
type LoginResult struct {
	User    model.User
	Access  Credential
	Refresh Credential
}

type SessionConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// SessionService issues, resolves and revokes sessions.
type SessionService struct {
	users    UserStore
	sessions SessionStore
	codec    *utils.TokenCodec
	cfg      SessionConfig
	events   EventPublisher
	log      *zerolog.Logger

	// compared against on unknown emails so both login failures cost a bcrypt
	dummyHash string
	now       func() time.Time
}

func NewSessionService(users UserStore, sessions SessionStore, codec *utils.TokenCodec, cfg SessionConfig, events EventPublisher, log *zerolog.Logger) (*SessionService, error) {
	dummy, err := utils.HashPassword("dummy-password-for-timing", cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &SessionService{
		users:     users,
		sessions:  sessions,
		codec:     codec,
		cfg:       cfg,
		events:    events,
		log:       log,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// Login checks the password and creates one access and one refresh
// session bound to ip. Unknown email and wrong password fail the same way.
func (s *SessionService) Login(ctx context.Context, email, password, ip string) (LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return LoginResult{}, apperror.InvalidCredentials(msgInvalidCredentials)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.VerifyPassword(s.dummyHash, password)
		return LoginResult{}, apperror.InvalidCredentials(msgInvalidCredentials)
	}
	if err != nil {
		return LoginResult{}, apperror.Internal(fmt.Errorf("load user: %w", err))
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return LoginResult{}, apperror.InvalidCredentials(msgInvalidCredentials)
	}

	access, err := s.issue(ctx, u.ID, ip, false, s.cfg.AccessTTL)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, err := s.issue(ctx, u.ID, ip, true, s.cfg.RefreshTTL)
	if err != nil {
		return LoginResult{}, err
	}

	emit(s.events, s.log, queue.AuthEvent{Type: queue.EventLogin, UserID: u.ID, Role: u.Role.String(), IP: ip})
	return LoginResult{User: u, Access: access, Refresh: refresh}, nil
}

// Refresh mints a new access session from a refresh credential. The
// refresh session itself is left as is and stays usable until it expires.
func (s *SessionService) Refresh(ctx context.Context, refreshToken, ip string) (Credential, error) {
	sess, err := s.load(ctx, refreshToken)
	if err != nil {
		return Credential{}, err
	}
	if !sess.IsRefresh || sess.Expired(s.now()) {
		return Credential{}, apperror.InvalidCredentials(msgInvalidCredentials)
	}
	return s.issue(ctx, sess.UserID, ip, false, s.cfg.AccessTTL)
}

// Resolve turns an access credential into its user and session. It is the
// check every authenticated request goes through.
func (s *SessionService) Resolve(ctx context.Context, token, ip string) (model.User, model.Session, error) {
	sess, err := s.load(ctx, token)
	if err != nil {
		return model.User{}, model.Session{}, err
	}
	if sess.IsRefresh || sess.Expired(s.now()) || sess.IP != ip {
		return model.User{}, model.Session{}, apperror.InvalidCredentials(msgInvalidCredentials)
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, model.Session{}, apperror.InvalidCredentials(msgInvalidCredentials)
	}
	if err != nil {
		return model.User{}, model.Session{}, apperror.Internal(fmt.Errorf("load user: %w", err))
	}
	return u, sess, nil
}

// RevokeSession deletes one of the acting user's other sessions.
func (s *SessionService) RevokeSession(ctx context.Context, acting model.Session, targetID string) error {
	if targetID == acting.ID {
		return apperror.BadRequest("cannot revoke the session in use")
	}
	target, err := s.sessions.Get(ctx, targetID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("session not found")
	}
	if err != nil {
		return apperror.Internal(fmt.Errorf("load session: %w", err))
	}
	if target.UserID != acting.UserID {
		return apperror.Forbidden("session belongs to another user")
	}
	if err := s.sessions.Delete(ctx, target); err != nil {
		return apperror.Internal(fmt.Errorf("delete session: %w", err))
	}
	return nil
}

// RevokeAllForUser deletes every session of the user, the one in use included.
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID string) error {
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return apperror.Internal(fmt.Errorf("delete sessions: %w", err))
	}
	emit(s.events, s.log, queue.AuthEvent{Type: queue.EventSessionsRevoked, UserID: userID})
	return nil
}

// ListSessions returns the user's live sessions, newest first.
func (s *SessionService) ListSessions(ctx context.Context, userID string) ([]model.Session, error) {
	list, err := s.sessions.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list sessions: %w", err))
	}
	now := s.now()
	live := list[:0]
	for _, sess := range list {
		if !sess.Expired(now) {
			live = append(live, sess)
		}
	}
	return live, nil
}

// Logout ends the acting session and, when the caller still holds it, the
// refresh session issued alongside. A refresh token of another user or one
// that no longer decodes is ignored.
func (s *SessionService) Logout(ctx context.Context, acting model.Session, refreshToken string) error {
	if err := s.sessions.Delete(ctx, acting); err != nil {
		return apperror.Internal(fmt.Errorf("delete session: %w", err))
	}
	if refreshToken == "" {
		return nil
	}
	id, err := s.codec.Decode(refreshToken)
	if err != nil {
		return nil
	}
	ref, err := s.sessions.Get(ctx, id)
	if err != nil || !ref.IsRefresh || ref.UserID != acting.UserID {
		return nil
	}
	if err := s.sessions.Delete(ctx, ref); err != nil {
		return apperror.Internal(fmt.Errorf("delete refresh session: %w", err))
	}
	return nil
}

func (s *SessionService) issue(ctx context.Context, userID, ip string, refresh bool, ttl time.Duration) (Credential, error) {
	now := s.now().UTC()
	sess := model.Session{
		ID:         utils.NewID(),
		UserID:     userID,
		IP:         ip,
		IsRefresh:  refresh,
		ValidUntil: now.Add(ttl),
		CreatedAt:  now,
	}
	token, err := s.codec.Encode(sess.ID)
	if err != nil {
		return Credential{}, apperror.Internal(err)
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Credential{}, apperror.Internal(fmt.Errorf("save session: %w", err))
	}
	return Credential{Token: token, Session: sess}, nil
}

// load decodes a credential and fetches its session.
func (s *SessionService) load(ctx context.Context, token string) (model.Session, error) {
	id, err := s.codec.Decode(token)
	if err != nil {
		return model.Session{}, apperror.InvalidCredentials(msgInvalidCredentials)
	}
	sess, err := s.sessions.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Session{}, apperror.InvalidCredentials(msgInvalidCredentials)
	}
	if err != nil {
		return model.Session{}, apperror.Internal(fmt.Errorf("load session: %w", err))
	}
	return sess, nil
}
