package user

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

func strPtr(s string) *string { return &s }

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"admin", RoleAdmin, true},
		{"webex_admin", RoleWebexAdmin, true},
		{"webex-user", RoleWebexUser, true},
		{" PureCloud-Admin ", RolePurecloudAdmin, true},
		{"purecloud_user", RolePurecloudUser, true},
		{"root", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseRole(%q) = (%q,%v), want (%q,%v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCreateRequestValidate(t *testing.T) {
	valid := CreateRequest{Name: "Ann", Email: "ann@x.com", Role: "admin", Password: "secret1"}

	tests := []struct {
		name     string
		mutate   func(r *CreateRequest)
		wantTags map[string]string
	}{
		{name: "valid", mutate: func(r *CreateRequest) {}},
		{name: "hyphenated role", mutate: func(r *CreateRequest) { r.Role = "webex-admin" }},
		{
			name:     "missing name",
			mutate:   func(r *CreateRequest) { r.Name = "" },
			wantTags: map[string]string{"Name": "required"},
		},
		{
			name:     "short password",
			mutate:   func(r *CreateRequest) { r.Password = "12345" },
			wantTags: map[string]string{"Password": "min"},
		},
		{
			name:     "bad email and role",
			mutate:   func(r *CreateRequest) { r.Email = "not-an-email"; r.Role = "root" },
			wantTags: map[string]string{"Email": "email", "Role": "role"},
		},
		{
			name:     "multibyte password over bcrypt byte limit",
			mutate:   func(r *CreateRequest) { r.Password = strings.Repeat("é", 40) },
			wantTags: map[string]string{"Password": "pwbytes"},
		},
		{name: "multibyte password within byte limit", mutate: func(r *CreateRequest) { r.Password = strings.Repeat("é", 36) }},
		{
			name:     "whitespace name after normalize",
			mutate:   func(r *CreateRequest) { r.Name = "   " },
			wantTags: map[string]string{"Name": "required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			req.Normalize()

			err := req.Validate()
			if len(tt.wantTags) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
			}

			var fields validator.ValidationErrors
			if !errors.As(err, &fields) {
				t.Fatalf("expected validator.ValidationErrors inside, got %v", err)
			}

			got := map[string]string{}
			for _, fe := range fields {
				got[fe.Field()] = fe.Tag()
			}
			for field, tag := range tt.wantTags {
				if got[field] != tag {
					t.Fatalf("field %s: got tag %q, want %q (all=%v)", field, got[field], tag, got)
				}
			}
		})
	}
}

func TestUpdateRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     UpdateRequest
		wantErr bool
	}{
		{name: "empty patch", req: UpdateRequest{}},
		{name: "rename", req: UpdateRequest{Name: strPtr("Annie")}},
		{name: "empty name", req: UpdateRequest{Name: strPtr("")}, wantErr: true},
		{name: "bad email", req: UpdateRequest{Email: strPtr("nope")}, wantErr: true},
		{name: "bad role", req: UpdateRequest{Role: strPtr("owner")}, wantErr: true},
		{name: "short password", req: UpdateRequest{Password: strPtr("abc")}, wantErr: true},
		{name: "new password", req: UpdateRequest{Password: strPtr("longenough")}},
		{name: "multibyte password too long", req: UpdateRequest{Password: strPtr(strings.Repeat("é", 40))}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("got err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateRequestToPatch(t *testing.T) {
	hash := "$2a$10$hash"
	req := UpdateRequest{Role: strPtr("purecloud-user"), Password: strPtr("whatever")}

	p := req.ToPatch(&hash)

	if p.Role == nil || *p.Role != RolePurecloudUser {
		t.Fatalf("role not normalised: %+v", p.Role)
	}
	if p.PasswordHash == nil || *p.PasswordHash != hash {
		t.Fatalf("password hash not carried")
	}
	if p.Name != nil || p.Email != nil {
		t.Fatalf("unexpected fields in patch: %+v", p)
	}

	u := p.Apply(User{ID: "1", Name: "Ann", Role: RoleAdmin, PasswordHash: "old"})
	if u.Name != "Ann" || u.Role != RolePurecloudUser || u.PasswordHash != hash {
		t.Fatalf("apply mismatch: %+v", u)
	}
}

func TestUserJSONOmitsPasswordHash(t *testing.T) {
	b, err := json.Marshal(User{ID: "1", Name: "Ann", Email: "ann@x.com", Role: RoleAdmin, PasswordHash: "$2a$10$secret"})
	if err != nil {
		t.Fatal(err)
	}

	s := string(b)
	if strings.Contains(s, "secret") || strings.Contains(strings.ToLower(s), "password") {
		t.Fatalf("serialized user leaks password data: %s", s)
	}
}

func TestLoginRequestValidate(t *testing.T) {
	ok := LoginRequest{Email: " ann@x.com ", Password: "secret1"}
	ok.Normalize()
	if ok.Email != "ann@x.com" {
		t.Fatalf("email not trimmed: %q", ok.Email)
	}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := (LoginRequest{Email: "ann@x.com"}).Validate(); err == nil {
		t.Fatal("expected error for missing password")
	}
	if err := (LoginRequest{Password: "secret1"}).Validate(); err == nil {
		t.Fatal("expected error for missing email")
	}
}
