package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avennor/sluice/core"
)

// Requirement: Create issues a request with a 6-character code and a 15 minute
// validity window.
func TestVerificationManager_Create(t *testing.T) {
	// Arrange
	storage := NewFakeAuthStorage()
	vm := NewVerificationManager(storage)

	// Act
	request, err := vm.Create(context.Background(), "user-1", "alice@example.com")

	// Assert
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if request.ID == "" {
		t.Error("Create() request ID is empty")
	}
	if len(request.Code) != 6 {
		t.Errorf("code length = %d, want 6", len(request.Code))
	}
	if request.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", request.Email, "alice@example.com")
	}
	wantExpiry := time.Now().Add(15 * time.Minute)
	if request.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || request.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("expiry = %v, want about %v", request.ExpiresAt, wantExpiry)
	}
}

// Requirement: a user has at most one live request; creating a new one deletes
// every prior request.
func TestVerificationManager_Create_SupersedesPrior(t *testing.T) {
	// Arrange
	storage := NewFakeAuthStorage()
	vm := NewVerificationManager(storage)
	first, err := vm.Create(context.Background(), "user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Act
	second, err := vm.Create(context.Background(), "user-1", "alice@example.com")

	// Assert
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if second.ID == first.ID {
		t.Error("Create() reused the prior request ID")
	}
	requests := storage.requestsForUser("user-1")
	if len(requests) != 1 {
		t.Fatalf("live requests = %d, want 1", len(requests))
	}
	if requests[0].ID != second.ID {
		t.Error("the surviving request should be the newest one")
	}
	if _, err := vm.Get(context.Background(), "user-1", first.ID); !errors.Is(err, core.ErrVerificationNotFound) {
		t.Error("the superseded request should be gone")
	}
}

// Requirement: Get is scoped to both user and request id, so ids cannot be probed
// across users.
func TestVerificationManager_Get(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		lookup  func(request *core.VerificationRequest) (userID, id string)
		wantErr error
	}{
		{
			name: "own request",
			lookup: func(r *core.VerificationRequest) (string, string) {
				return r.UserID, r.ID
			},
			wantErr: nil,
		},
		{
			name: "someone else's request",
			lookup: func(r *core.VerificationRequest) (string, string) {
				return "user-other", r.ID
			},
			wantErr: core.ErrVerificationNotFound,
		},
		{
			name: "unknown request id",
			lookup: func(r *core.VerificationRequest) (string, string) {
				return r.UserID, "nonexistent"
			},
			wantErr: core.ErrVerificationNotFound,
		},
		{
			name: "empty request id",
			lookup: func(r *core.VerificationRequest) (string, string) {
				return r.UserID, ""
			},
			wantErr: core.ErrVerificationNotFound,
		},
		{
			name: "empty user id",
			lookup: func(r *core.VerificationRequest) (string, string) {
				return "", r.ID
			},
			wantErr: core.ErrVerificationNotFound,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeAuthStorage()
			vm := NewVerificationManager(storage)
			request, err := vm.Create(context.Background(), "user-1", "alice@example.com")
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			userID, id := test.lookup(request)

			// Act
			got, err := vm.Get(context.Background(), userID, id)

			// Assert
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("Get() error = %v, want %v", err, test.wantErr)
			}
			if test.wantErr == nil {
				if got == nil || got.ID != request.ID {
					t.Error("Get() should return the stored request")
				}
				if got.Code != request.Code {
					t.Error("Get() returned a different code")
				}
			}
		})
	}
}

func TestVerificationManager_DeleteForUser(t *testing.T) {
	// Arrange
	storage := NewFakeAuthStorage()
	vm := NewVerificationManager(storage)
	request, _ := vm.Create(context.Background(), "user-1", "alice@example.com")
	other, _ := vm.Create(context.Background(), "user-2", "bob@example.com")

	// Act
	if err := vm.DeleteForUser(context.Background(), "user-1"); err != nil {
		t.Fatalf("DeleteForUser() error = %v", err)
	}

	// Assert
	if _, err := vm.Get(context.Background(), "user-1", request.ID); !errors.Is(err, core.ErrVerificationNotFound) {
		t.Error("user-1's request should be gone")
	}
	if _, err := vm.Get(context.Background(), "user-2", other.ID); err != nil {
		t.Errorf("user-2's request should survive, got %v", err)
	}
}
