package security

import (
	"strings"
	"testing"
)

func testHasher(t *testing.T) *Argon2Hasher {
	t.Helper()

	hasher, err := NewArgon2Hasher(Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("failed to build hasher: %v", err)
	}
	return hasher
}

func TestArgon2HashAndVerify(t *testing.T) {
	hasher := testHasher(t)

	encoded, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %q", encoded)
	}

	ok, err := hasher.Verify("correct horse battery staple", encoded)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected matching password to verify")
	}

	ok, err = hasher.Verify("wrong password", encoded)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched password to fail verification")
	}
}

func TestArgon2HashesAreSalted(t *testing.T) {
	hasher := testHasher(t)

	first, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	second, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if first == second {
		t.Fatal("expected distinct salts to produce distinct hashes")
	}
}

func TestArgon2VerifyRejectsMalformedHash(t *testing.T) {
	hasher := testHasher(t)

	if _, err := hasher.Verify("password", "not-an-argon2-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestArgon2VerifySurvivesConfigChange(t *testing.T) {
	hasher := testHasher(t)

	encoded, err := hasher.Hash("stable across configs")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	upgraded, err := NewArgon2Hasher(Argon2Config{
		Memory:      16 * 1024,
		Iterations:  2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("failed to build hasher: %v", err)
	}

	ok, err := upgraded.Verify("stable across configs", encoded)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected hash created under old parameters to verify")
	}
}

func TestNewArgon2HasherRejectsWeakConfig(t *testing.T) {
	if _, err := NewArgon2Hasher(Argon2Config{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}); err == nil {
		t.Fatal("expected error for too little memory")
	}
}
