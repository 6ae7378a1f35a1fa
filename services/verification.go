package services

import (
	"context"
	"fmt"
	"time"

	"github.com/avennor/sluice/core"
	"github.com/avennor/sluice/pkg/crypto"
)

// Verification requests expire after 15 minutes.
const verificationLifetime = 15 * time.Minute

// VerificationManager issues and looks up one-time email verification
// codes. A user has at most one live request: creating a new one deletes
// every prior request first.
type VerificationManager struct {
	storage core.VerificationStorage
}

func NewVerificationManager(storage core.VerificationStorage) *VerificationManager {
	return &VerificationManager{storage: storage}
}

// Create supersedes any pending requests for the user and persists a fresh
// one. Request ids reuse the session token primitive, so they carry the
// same entropy as bearer tokens.
func (vm *VerificationManager) Create(ctx context.Context, userID, email string) (*core.VerificationRequest, error) {
	if err := vm.storage.DeleteUserVerificationRequests(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to delete prior verification requests: %w", err)
	}

	id, err := crypto.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request id: %w", err)
	}

	code, err := crypto.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	now := time.Now()
	request := &core.VerificationRequest{
		ID:        id,
		UserID:    userID,
		Email:     email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(verificationLifetime),
	}

	if err := vm.storage.CreateVerificationRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create verification request: %w", err)
	}

	return request, nil
}

// Get fetches a request scoped to both the user and the request id, so ids
// cannot be probed across users.
func (vm *VerificationManager) Get(ctx context.Context, userID, id string) (*core.VerificationRequest, error) {
	if userID == "" || id == "" {
		return nil, core.ErrVerificationNotFound
	}
	return vm.storage.GetVerificationRequest(ctx, userID, id)
}

// DeleteForUser removes every pending request for the user.
func (vm *VerificationManager) DeleteForUser(ctx context.Context, userID string) error {
	if err := vm.storage.DeleteUserVerificationRequests(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete verification requests: %w", err)
	}
	return nil
}
