package crypto

import (
	"strings"
	"testing"
)

func TestArgon2_Hash(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "success", password: "testPassword123", wantErr: false},
		{name: "empty password", password: "", wantErr: false},
		{name: "long password", password: strings.Repeat("a", 128), wantErr: false},
		{name: "unicode", password: "パスワード🔐", wantErr: false},
		{name: "special chars", password: "p@ssw0rd!#$%", wantErr: false},
		{name: "null byte", password: "pass\x00word", wantErr: false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			a := NewArgon2()

			// Act
			hash, err := a.Hash(test.password)

			// Assert
			if (err != nil) != test.wantErr {
				t.Fatalf("Hash() error = %v, wantErr %v", err, test.wantErr)
			}
			if !test.wantErr {
				if hash == "" {
					t.Error("Hash() returned empty hash")
				}
				// Format validation
				if !strings.HasPrefix(hash, "$argon2id$") {
					t.Error("Hash() should start with $argon2id$")
				}
				if !strings.Contains(hash, "$v=19$") {
					t.Error("Hash() should contain version 19")
				}
				if len(strings.Split(hash, "$")) != 6 {
					t.Error("Hash() should have 6 parts")
				}
			}
		})
	}
}

func TestArgon2_Hash_UniqueSalts(t *testing.T) {
	// Arrange
	a := NewArgon2()
	password := "samePassword"

	// Act
	hash1, _ := a.Hash(password)
	hash2, _ := a.Hash(password)

	// Assert
	if hash1 == hash2 {
		t.Error("Hash() should generate different hashes with unique salts")
	}
}

func TestArgon2_Verify(t *testing.T) {
	tests := []struct {
		name     string
		password string
		attempt  string
		wantOk   bool
	}{
		{name: "correct password", password: "correctPassword", attempt: "correctPassword", wantOk: true},
		{name: "wrong password", password: "correctPassword", attempt: "wrongPassword", wantOk: false},
		{name: "case sensitive", password: "correctPassword", attempt: "correctpassword", wantOk: false},
		{name: "extra character", password: "correctPassword", attempt: "correctPassword1", wantOk: false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			a := NewArgon2()
			hash, _ := a.Hash(test.password)

			// Act
			ok, err := a.Verify(test.attempt, hash)

			// Assert
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if ok != test.wantOk {
				t.Errorf("Verify() = %v, want %v", ok, test.wantOk)
			}
		})
	}
}

func TestArgon2_Verify_InvalidHashes(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "invalid format", hash: "invalid-hash"},
		{name: "too few parts", hash: "$argon2id$v=19$m=65536,t=3,p=2$salt"},
		{name: "unsupported algorithm", hash: "$argon2i$v=19$m=65536,t=3,p=2$salt$hash"},
		{name: "wrong algorithm", hash: "$bcrypt$v=19$m=65536,t=3,p=2$salt$hash"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			a := NewArgon2()

			// Act
			_, err := a.Verify("password", test.hash)

			// Assert
			if err == nil {
				t.Errorf("Verify() should return error for %s", test.name)
			}
		})
	}
}

func TestArgon2_Verify_AcrossInstances(t *testing.T) {
	// Hash parameters ride in the encoded string, so any instance can
	// verify any other instance's output.
	tests := []struct {
		name     string
		hasherA  *Argon2
		hasherB  *Argon2
		password string
	}{
		{
			name:     "default instances",
			hasherA:  NewArgon2(),
			hasherB:  NewArgon2(),
			password: "testPassword",
		},
		{
			name: "custom vs default",
			hasherA: &Argon2{
				Memory:      32 * 1024,
				Iterations:  2,
				Parallelism: 1,
				SaltLength:  8,
				KeyLength:   16,
			},
			hasherB:  NewArgon2(),
			password: "test",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			hash, _ := test.hasherA.Hash(test.password)

			// Act
			ok, err := test.hasherB.Verify(test.password, hash)

			// Assert
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if !ok {
				t.Error("Verify() should verify hash from different instance")
			}
		})
	}
}

func TestArgon2_New_Defaults(t *testing.T) {
	// Arrange
	a := NewArgon2()

	tests := []struct {
		name     string
		actual   interface{}
		expected interface{}
	}{
		{name: "memory 64MB", actual: a.Memory, expected: uint32(64 * 1024)},
		{name: "iterations 3", actual: a.Iterations, expected: uint32(3)},
		{name: "parallelism 2", actual: a.Parallelism, expected: uint8(2)},
		{name: "salt length 16", actual: a.SaltLength, expected: uint32(16)},
		{name: "key length 32", actual: a.KeyLength, expected: uint32(32)},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if test.actual != test.expected {
				t.Errorf("%s: got %v, want %v", test.name, test.actual, test.expected)
			}
		})
	}
}
