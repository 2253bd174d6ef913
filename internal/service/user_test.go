package service

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/ambulance-fleet-api/internal/apperror"
	"github.com/iliyamo/ambulance-fleet-api/internal/logger"
	"github.com/iliyamo/ambulance-fleet-api/internal/model"
	"github.com/iliyamo/ambulance-fleet-api/internal/repository"
	"github.com/iliyamo/ambulance-fleet-api/internal/utils"
	"github.com/iliyamo/ambulance-fleet-api/internal/validation"
)

type fakeDrivers map[string]model.Driver

func (f fakeDrivers) GetByUserID(_ context.Context, userID string) (model.Driver, error) {
	d, ok := f[userID]
	if !ok {
		return model.Driver{}, repository.ErrNotFound
	}
	return d, nil
}

func (f fakeDrivers) Update(_ context.Context, d model.Driver) error {
	if _, ok := f[d.UserID]; !ok {
		return repository.ErrNotFound
	}
	f[d.UserID] = d
	return nil
}

func newUserService(t *testing.T, users ...model.User) (*UserService, *sessionFixture) {
	t.Helper()
	fx := newSessionFixture(t, users...)
	drivers := fakeDrivers{"d1": {UserID: "d1", LicenseNumber: "999"}}
	amb := &fakeAmbulances{ids: map[string]bool{"amb-1": true}}
	svc := NewUserService(fx.users, drivers, amb, fx.svc, validation.New(), bcrypt.MinCost, fx.events, logger.Nop())
	return svc, fx
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Name:       "Ana Souza",
		Email:      "Ana@Example.com",
		Phone:      "(11) 98765-4321",
		NationalID: "123.456.789-01",
		Password:   "s3cret-pass",
		BirthDate:  "1990-04-12",
	}
}

func TestRegister(t *testing.T) {
	svc, fx := newUserService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Role != model.RoleUser {
		t.Fatalf("role = %s", u.Role)
	}
	if u.Email != "ana@example.com" || u.Phone != "11987654321" || u.NationalID != "12345678901" {
		t.Fatalf("not normalized: %+v", u)
	}
	if u.PasswordHash == "s3cret-pass" || !utils.VerifyPassword(u.PasswordHash, "s3cret-pass") {
		t.Fatal("password not hashed")
	}

	if _, err := fx.svc.Login(ctx, "ana@example.com", "s3cret-pass", homeIP); err != nil {
		t.Fatalf("login after register: %v", err)
	}
}

func TestRegisterReportsEveryField(t *testing.T) {
	svc, _ := newUserService(t)
	in := RegisterInput{
		Name:       "A",
		Email:      "not-an-email",
		Phone:      "12",
		NationalID: "1",
		Password:   "short",
		BirthDate:  "12/04/1990",
	}
	_, err := svc.Register(context.Background(), in)
	ae, ok := err.(*apperror.Error)
	if !ok || ae.Kind != apperror.KindValidation {
		t.Fatalf("err = %v", err)
	}
	seen := map[string]bool{}
	for _, f := range ae.Fields {
		seen[f.Field] = true
	}
	for _, want := range []string{"nome", "email", "telefone", "cpf", "senha", "data_nascimento"} {
		if !seen[want] {
			t.Errorf("missing violation for %s in %+v", want, ae.Fields)
		}
	}
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(ctx, validRegistration())
	ae, ok := err.(*apperror.Error)
	if !ok || ae.Kind != apperror.KindValidation {
		t.Fatalf("err = %v", err)
	}
	if len(ae.Fields) != 3 {
		t.Fatalf("fields = %+v, want email, telefone and cpf", ae.Fields)
	}
}

func TestRegisterFutureBirthDate(t *testing.T) {
	svc, _ := newUserService(t)
	in := validRegistration()
	in.BirthDate = "2999-01-01"
	if _, err := svc.Register(context.Background(), in); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestListPagination(t *testing.T) {
	svc, _ := newUserService(t,
		model.User{ID: "a"}, model.User{ID: "b"}, model.User{ID: "c"},
	)
	ctx := context.Background()

	page, err := svc.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 1 || page[0].ID != "c" {
		t.Fatalf("page 2 = %+v", page)
	}
	empty, err := svc.List(ctx, 5, 2)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("past the end: %v %v", empty, err)
	}
	for _, bad := range [][2]int{{0, 10}, {1, 0}, {1, maxPageSize + 1}} {
		if _, err := svc.List(ctx, bad[0], bad[1]); !apperror.Is(err, apperror.KindBadRequest) {
			t.Errorf("List(%d, %d) err = %v", bad[0], bad[1], err)
		}
	}
}

func TestDriverRecord(t *testing.T) {
	svc, _ := newUserService(t)
	d, err := svc.Driver(context.Background(), "d1")
	if err != nil || d.LicenseNumber != "999" {
		t.Fatalf("driver = %+v, %v", d, err)
	}
	if _, err := svc.Driver(context.Background(), "u1"); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestUpdateDriver(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	amb := "amb-1"
	expiry := time.Now().AddDate(1, 0, 0).Format(time.DateOnly)

	d, err := svc.UpdateDriver(ctx, "d1", DriverUpdate{AmbulanceID: &amb, LicenseExpiry: &expiry})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if d.AmbulanceID == nil || *d.AmbulanceID != "amb-1" || d.LicenseExpiry.Format(time.DateOnly) != expiry {
		t.Fatalf("driver = %+v", d)
	}
	if d.LicenseNumber != "999" {
		t.Fatalf("license number changed: %s", d.LicenseNumber)
	}

	none := ""
	d, err = svc.UpdateDriver(ctx, "d1", DriverUpdate{AmbulanceID: &none})
	if err != nil || d.AmbulanceID != nil {
		t.Fatalf("unassign: %+v, %v", d, err)
	}
	if d.LicenseExpiry.Format(time.DateOnly) != expiry {
		t.Fatal("omitted field was overwritten")
	}
}

func TestUpdateDriverFailures(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()
	unknown, past, junk := "amb-404", "2001-01-01", "next year"

	tests := []struct {
		name   string
		userID string
		in     DriverUpdate
		kind   apperror.Kind
	}{
		{"unknown ambulance", "d1", DriverUpdate{AmbulanceID: &unknown}, apperror.KindNotFound},
		{"expiry in the past", "d1", DriverUpdate{LicenseExpiry: &past}, apperror.KindValidation},
		{"expiry not a date", "d1", DriverUpdate{LicenseExpiry: &junk}, apperror.KindValidation},
		{"no driver record", "u1", DriverUpdate{}, apperror.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UpdateDriver(ctx, tt.userID, tt.in); !apperror.Is(err, tt.kind) {
				t.Fatalf("err = %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestDeleteRevokesSessions(t *testing.T) {
	u := testUser(t, "u1", "ana@example.com", model.RoleUser)
	svc, fx := newUserService(t, u)
	ctx := context.Background()
	res, err := fx.svc.Login(ctx, "ana@example.com", testPassword, homeIP)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := fx.users.GetByID(ctx, "u1"); err == nil {
		t.Fatal("user still stored")
	}
	if list, _ := fx.store.ListForUser(ctx, "u1"); len(list) != 0 {
		t.Fatalf("sessions left: %d", len(list))
	}
	if _, _, err := fx.svc.Resolve(ctx, res.Access.Token, homeIP); err == nil {
		t.Fatal("credential still resolves")
	}
	if err := svc.Delete(ctx, "u1"); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("second delete: err = %v", err)
	}
}
