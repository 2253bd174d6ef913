package service

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/ambulance-fleet-api/internal/apperror"
	"github.com/iliyamo/ambulance-fleet-api/internal/model"
)

const (
	homeIP  = "203.0.113.10"
	otherIP = "198.51.100.7"
)

func TestLoginCreatesAccessAndRefreshSessions(t *testing.T) {
	u := testUser(t, "u1", "ana@example.com", model.RoleUser)
	fx := newSessionFixture(t, u)
	ctx := context.Background()

	res, err := fx.svc.Login(ctx, "  ANA@example.com ", testPassword, homeIP)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Access.Token == "" || res.Refresh.Token == "" || res.Access.Token == res.Refresh.Token {
		t.Fatal("expected two distinct credentials")
	}
	if res.Access.Session.IsRefresh || !res.Refresh.Session.IsRefresh {
		t.Fatal("session kinds swapped")
	}
	if res.Access.Session.IP != homeIP || res.Refresh.Session.IP != homeIP {
		t.Fatal("sessions not bound to client ip")
	}
	if d := res.Access.ExpiresAt().Sub(res.Access.Session.CreatedAt); d != 30*time.Minute {
		t.Fatalf("access ttl = %s", d)
	}
	if d := res.Refresh.ExpiresAt().Sub(res.Refresh.Session.CreatedAt); d != 7*24*time.Hour {
		t.Fatalf("refresh ttl = %s", d)
	}

	list, err := fx.svc.ListSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("sessions = %d, want 2", len(list))
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	fx := newSessionFixture(t, testUser(t, "u1", "ana@example.com", model.RoleUser))
	ctx := context.Background()

	_, errUnknown := fx.svc.Login(ctx, "nobody@example.com", testPassword, homeIP)
	_, errWrong := fx.svc.Login(ctx, "ana@example.com", "wrong-password", homeIP)

	for _, err := range []error{errUnknown, errWrong} {
		ae, ok := err.(*apperror.Error)
		if !ok || ae.Kind != apperror.KindInvalidCredentials {
			t.Fatalf("err = %v, want invalid credentials", err)
		}
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("login failures differ: %q vs %q", errUnknown, errWrong)
	}
}

func TestResolveIPBinding(t *testing.T) {
	fx := newSessionFixture(t, testUser(t, "u1", "ana@example.com", model.RoleUser))
	ctx := context.Background()
	res, err := fx.svc.Login(ctx, "ana@example.com", testPassword, homeIP)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	u, sess, err := fx.svc.Resolve(ctx, res.Access.Token, homeIP)
	if err != nil {
		t.Fatalf("resolve from home ip: %v", err)
	}
	if u.ID != "u1" || sess.ID != res.Access.Session.ID {
		t.Fatalf("resolved %s/%s", u.ID, sess.ID)
	}

	if _, _, err := fx.svc.Resolve(ctx, res.Access.Token, otherIP); !apperror.Is(err, apperror.KindInvalidCredentials) {
		t.Fatalf("resolve from other ip: err = %v", err)
	}
}

func TestResolveExpiredSession(t *testing.T) {
	fx := newSessionFixture(t, testUser(t, "u1", "ana@example.com", model.RoleUser))
	ctx := context.Background()
	res, err := fx.svc.Login(ctx, "ana@example.com", testPassword, homeIP)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// the record is still in redis; only the clock moved
	fx.svc.now = func() time.Time { return res.Access.ExpiresAt() }
	if _, _, err := fx.svc.Resolve(ctx, res.Access.Token, homeIP); !apperror.Is(err, apperror.KindInvalidCredentials) {
		t.Fatalf("at validUntil: err = %v", err)
	}
	fx.svc.now = func() time.Time { return res.Access.ExpiresAt().Add(time.Hour) }
	if _, _, err := fx.svc.Resolve(ctx, res.Access.Token, homeIP); !apperror.Is(err, apperror.KindInvalidCredentials) {
		t.Fatalf("after validUntil: err = %v", err)
	}

	fx.svc.now = time.Now
	fx.mr.FastForward(31 * time.Minute)
	if _, _, err := fx.svc.Resolve(ctx, res.Access.Token, homeIP); !apperror.Is(err, apperror.KindInvalidCredentials) {
		t.Fatalf("after eviction: err = %v", err)
	}
}

func TestAccessAndRefreshNotInterchangeable(t *testing.T) {
	fx := newSessionFixture(t, testUser(t, "u1", "ana@example.com", model.RoleUser))
	ctx := context.Background()
	res, err := fx.svc.Login(ctx, "ana@example.com", testPassword, homeIP)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := fx.svc.Refresh(ctx, res.Access.Token, homeIP); !apperror.Is(err, apperror.KindInvalidCredentials) {
		t.Fatalf("refresh with access credential: err = %v", err)
	}
	if _, _, err := fx.svc.Resolve(ctx, res.Refresh.Token, homeIP); !apperror.Is(err, apperror.KindInvalidCredentials) {
		t.Fatalf("resolve with refresh credential: err = %v", err)
	}
}

func TestRefreshMintsNewAccessSession(t *testing.T) {
	fx := newSessionFixture(t, testUser(t, "u1", "ana@example.com", model.RoleUser))
	ctx := context.Background()
	res, err := fx.svc.Login(ctx, "ana@example.com", testPassword, homeIP)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	first, err := fx.svc.Refresh(ctx, res.Refresh.Token, otherIP)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if first.Session.IsRefresh || first.Session.ID == res.Access.Session.ID {
		t.Fatal("refresh must create a new access session")
	}
	if first.Session.IP != otherIP {
		t.Fatalf("new session bound to %s", first.Session.IP)
	}
	if _, _, err := fx.svc.Resolve(ctx, first.Token, otherIP); err != nil {
		t.Fatalf("resolve refreshed credential: %v", err)
	}

	// not rotated: the same refresh credential keeps working
	second, err := fx.svc.Refresh(ctx, res.Refresh.Token, homeIP)
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if second.Session.ID == first.Session.ID {
		t.Fatal("each refresh must mint a distinct session")
	}
	stored, err := fx.store.Get(ctx, res.Refresh.Session.ID)
	if err != nil {
		t.Fatalf("refresh session gone: %v", err)
	}
	if !stored.ValidUntil.Equal(res.Refresh.Session.ValidUntil) {
		t.Fatal("refresh session validity changed")
	}
}

func TestRefreshExpired(t *testing.T) {
	fx := newSessionFixture(t, testUser(t, "u1", "ana@example.com", model.RoleUser))
	ctx := context.Background()
	res, err := fx.svc.Login(ctx, "ana@example.com", testPassword, homeIP)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	fx.svc.now = func() time.Time { return res.Refresh.ExpiresAt().Add(time.Second) }
	if _, err := fx.svc.Refresh(ctx, res.Refresh.Token, homeIP); !apperror.Is(err, apperror.KindInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}
	if _, err := fx.svc.Refresh(ctx, "garbage", homeIP); !apperror.Is(err, apperror.KindInvalidCredentials) {
		t.Fatalf("garbage: err = %v", err)
	}
}

func TestRevokeSession(t *testing.T) {
	fx := newSessionFixture(t,
		testUser(t, "u1", "ana@example.com", model.RoleUser),
		testUser(t, "u2", "bia@example.com", model.RoleUser),
	)
	ctx := context.Background()

	first, err := fx.svc.Login(ctx, "ana@example.com", testPassword, homeIP)
	if err != nil {
		t.Fatalf("login 1: %v", err)
	}
	second, err := fx.svc.Login(ctx, "ana@example.com", testPassword, otherIP)
	if err != nil {
		t.Fatalf("login 2: %v", err)
	}
	foreign, err := fx.svc.Login(ctx, "bia@example.com", testPassword, homeIP)
	if err != nil {
		t.Fatalf("login 3: %v", err)
	}
	acting := first.Access.Session

	if err := fx.svc.RevokeSession(ctx, acting, acting.ID); !apperror.Is(err, apperror.KindBadRequest) {
		t.Fatalf("self revoke: err = %v", err)
	}
	if err := fx.svc.RevokeSession(ctx, acting, "does-not-exist"); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("missing: err = %v", err)
	}
	if err := fx.svc.RevokeSession(ctx, acting, foreign.Access.Session.ID); !apperror.Is(err, apperror.KindForbidden) {
		t.Fatalf("foreign: err = %v", err)
	}

	if err := fx.svc.RevokeSession(ctx, acting, second.Access.Session.ID); err != nil {
		t.Fatalf("revoke second: %v", err)
	}
	if _, _, err := fx.svc.Resolve(ctx, second.Access.Token, otherIP); !apperror.Is(err, apperror.KindInvalidCredentials) {
		t.Fatalf("revoked credential still resolves: %v", err)
	}
	if _, _, err := fx.svc.Resolve(ctx, first.Access.Token, homeIP); err != nil {
		t.Fatalf("acting session lost: %v", err)
	}
}

func TestRevokeAllForUser(t *testing.T) {
	fx := newSessionFixture(t, testUser(t, "u1", "ana@example.com", model.RoleUser))
	ctx := context.Background()
	res, err := fx.svc.Login(ctx, "ana@example.com", testPassword, homeIP)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := fx.svc.RevokeAllForUser(ctx, "u1"); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if _, _, err := fx.svc.Resolve(ctx, res.Access.Token, homeIP); err == nil {
		t.Fatal("access survived revoke all")
	}
	if _, err := fx.svc.Refresh(ctx, res.Refresh.Token, homeIP); err == nil {
		t.Fatal("refresh survived revoke all")
	}
}

func TestLogoutDropsAccessAndRefresh(t *testing.T) {
	fx := newSessionFixture(t, testUser(t, "u1", "ana@example.com", model.RoleUser))
	ctx := context.Background()
	res, err := fx.svc.Login(ctx, "ana@example.com", testPassword, homeIP)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	other, err := fx.svc.Login(ctx, "ana@example.com", testPassword, otherIP)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := fx.svc.Logout(ctx, res.Access.Session, res.Refresh.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := fx.svc.Resolve(ctx, res.Access.Token, homeIP); err == nil {
		t.Fatal("access survived logout")
	}
	if _, err := fx.svc.Refresh(ctx, res.Refresh.Token, homeIP); err == nil {
		t.Fatal("refresh survived logout")
	}
	if _, _, err := fx.svc.Resolve(ctx, other.Access.Token, otherIP); err != nil {
		t.Fatalf("unrelated session lost: %v", err)
	}
}

func TestResolveDeletedUser(t *testing.T) {
	fx := newSessionFixture(t, testUser(t, "u1", "ana@example.com", model.RoleUser))
	ctx := context.Background()
	res, err := fx.svc.Login(ctx, "ana@example.com", testPassword, homeIP)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := fx.users.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := fx.svc.Resolve(ctx, res.Access.Token, homeIP); !apperror.Is(err, apperror.KindInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}
}
