package user

import (
	"encoding/json"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestRegistrationValidate(t *testing.T) {
	t.Parallel()

	valid := Registration{
		MeterID:  "MTR-001",
		Email:    "lisa@example.org",
		Password: "secret123",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}

	cases := []struct {
		name string
		reg  Registration
	}{
		{"short meter id", Registration{MeterID: "ab", Email: "a@b.org", Password: "secret123"}},
		{"blank meter id", Registration{MeterID: "   ", Email: "a@b.org", Password: "secret123"}},
		{"missing at sign", Registration{MeterID: "MTR-001", Email: "not-an-email", Password: "secret123"}},
		{"leading at sign", Registration{MeterID: "MTR-001", Email: "@example.org", Password: "secret123"}},
		{"trailing at sign", Registration{MeterID: "MTR-001", Email: "lisa@", Password: "secret123"}},
		{"short password", Registration{MeterID: "MTR-001", Email: "a@b.org", Password: "12345"}},
	}
	for _, tc := range cases {
		if err := tc.reg.Validate(); err == nil {
			t.Fatalf("%s: Validate() error = nil, want error", tc.name)
		}
	}
}

func TestUserJSONHidesPasswordHash(t *testing.T) {
	t.Parallel()

	u := User{
		ID:             "u1",
		MeterID:        "MTR-001",
		Email:          "lisa@example.org",
		HashedPassword: "$2a$10$secret",
		IsActive:       true,
	}
	raw, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}
	if strings.Contains(string(raw), "secret") {
		t.Fatalf("password hash leaked into JSON: %s", raw)
	}
	if !strings.Contains(string(raw), "MTR-001") {
		t.Fatalf("meter id missing from JSON: %s", raw)
	}
}

func TestAccessTokenJSONHidesHash(t *testing.T) {
	t.Parallel()

	tok := AccessToken{ID: "t1", UserID: "u1", TokenHash: "deadbeef"}
	raw, err := json.Marshal(tok)
	if err != nil {
		t.Fatalf("marshal token: %v", err)
	}
	if strings.Contains(string(raw), "deadbeef") {
		t.Fatalf("token hash leaked into JSON: %s", raw)
	}
}

func TestHashTokenIsDeterministicAndOpaque(t *testing.T) {
	t.Parallel()

	a := hashToken("raw-secret")
	b := hashToken("raw-secret")
	c := hashToken("other-secret")

	if a != b {
		t.Fatal("hashToken is not deterministic")
	}
	if a == c {
		t.Fatal("distinct secrets hashed to the same value")
	}
	if len(a) != 64 {
		t.Fatalf("len(hash) = %d, want 64 hex chars", len(a))
	}
	if strings.Contains(a, "raw-secret") {
		t.Fatal("hash contains the raw secret")
	}
}

func TestBcryptRoundTrip(t *testing.T) {
	t.Parallel()

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	if err := bcrypt.CompareHashAndPassword(hashed, []byte("secret123")); err != nil {
		t.Fatalf("CompareHashAndPassword() error = %v", err)
	}
	if err := bcrypt.CompareHashAndPassword(hashed, []byte("wrong")); err == nil {
		t.Fatal("wrong password accepted")
	}
}
