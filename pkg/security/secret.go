// Package security hashes and checks the shared secret the SMS forwarder
// app presents on every ingest call.
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var ErrInvalidHash = errors.New("invalid argon2id hash")

type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

var DefaultParams = ArgonParams{Memory: 64 * 1024, Time: 1, Parallelism: 2, SaltLen: 16, KeyLen: 32}

// HashSecret encodes secret in the PHC argon2id format
// ($argon2id$v=19$m=..,t=..,p=..$salt$key). Out-of-range params are clamped.
func HashSecret(secret string, p ArgonParams) (string, error) {
	if secret == "" {
		return "", errors.New("secret cannot be empty")
	}
	p = ArgonParams{
		Memory:      clamp(p.Memory, 8, 512*1024),
		Time:        clamp(p.Time, 1, 10),
		Parallelism: uint8(clamp(uint32(p.Parallelism), 1, 255)),
		SaltLen:     clamp(p.SaltLen, 8, 64),
		KeyLen:      clamp(p.KeyLen, 16, 64),
	}
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(secret), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifySecret reports whether secret matches encoded.
func VerifySecret(secret, encoded string) (bool, error) {
	h, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	return h.matches(secret), nil
}

type argonHash struct {
	params ArgonParams
	salt   []byte
	key    []byte
}

func parseHash(encoded string) (*argonHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, ErrInvalidHash
	}
	var h argonHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.params.Memory, &h.params.Time, &h.params.Parallelism); err != nil {
		return nil, ErrInvalidHash
	}
	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, ErrInvalidHash
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.key) == 0 {
		return nil, ErrInvalidHash
	}
	h.params.SaltLen = uint32(len(h.salt))
	h.params.KeyLen = uint32(len(h.key))
	return &h, nil
}

func (h *argonHash) matches(secret string) bool {
	key := argon2.IDKey([]byte(secret), h.salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLen)
	return subtle.ConstantTimeCompare(h.key, key) == 1
}

// Verifier checks secrets against one configured hash. The forwarder sends
// the same secret on every call, so after the first argon2 match the digest
// of that secret is remembered and repeats skip the key derivation.
type Verifier struct {
	hash *argonHash

	mu       sync.RWMutex
	accepted [sha256.Size]byte
	warm     bool
}

func NewVerifier(encoded string) (*Verifier, error) {
	h, err := parseHash(strings.TrimSpace(encoded))
	if err != nil {
		return nil, err
	}
	return &Verifier{hash: h}, nil
}

func (v *Verifier) Verify(secret string) bool {
	if secret == "" {
		return false
	}
	digest := sha256.Sum256([]byte(secret))

	v.mu.RLock()
	hit := v.warm && subtle.ConstantTimeCompare(v.accepted[:], digest[:]) == 1
	v.mu.RUnlock()
	if hit {
		return true
	}
	if !v.hash.matches(secret) {
		return false
	}
	v.mu.Lock()
	v.accepted, v.warm = digest, true
	v.mu.Unlock()
	return true
}

func clamp(v, lo, hi uint32) uint32 {
	return min(max(v, lo), hi)
}
