package auth_test

import (
	"testing"

	"shilohnova/internal/auth"
)

func TestStaticCredentialsVerify(t *testing.T) {
	creds, err := auth.NewStaticCredentials("admin@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("new credentials: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     bool
	}{
		{name: "valid pair", email: "admin@example.com", password: "hunter2hunter2", want: true},
		{name: "wrong password", email: "admin@example.com", password: "hunter3", want: false},
		{name: "wrong email", email: "intruder@example.com", password: "hunter2hunter2", want: false},
		{name: "both wrong", email: "intruder@example.com", password: "hunter3", want: false},
		{name: "empty", email: "", password: "", want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := creds.Verify(tc.email, tc.password); got != tc.want {
				t.Fatalf("Verify(%q, %q) = %v, want %v", tc.email, tc.password, got, tc.want)
			}
		})
	}
}

func TestNewStaticCredentialsRequiresBothFields(t *testing.T) {
	if _, err := auth.NewStaticCredentials("", "secret"); err == nil {
		t.Fatal("expected error for empty email")
	}
	if _, err := auth.NewStaticCredentials("admin@example.com", ""); err == nil {
		t.Fatal("expected error for empty password")
	}
}
