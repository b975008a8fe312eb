package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const hashFormat = "$argon2id$v=%d$t=%d,m=%d,p=%d$%s$%s"

var ErrMalformedHash = errors.New("malformed password hash")

type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

var DefaultParams = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 2,
	KeyLen:  32,
	SaltLen: 16,
}

func HashPassword(password string) ([]byte, error) {
	return HashPasswordWithParams(password, DefaultParams)
}

func HashPasswordWithParams(password string, p Argon2Params) ([]byte, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	encoded := fmt.Sprintf(hashFormat, argon2.Version, p.Time, p.Memory, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
	return []byte(encoded), nil
}

// VerifyPassword recomputes the key with the parameters stored in encoded.
func VerifyPassword(password string, encoded []byte) (bool, error) {
	var (
		version int
		p       Argon2Params
		salt64  string
		key64   string
	)
	// %s stops at whitespace, not '$', so the tail is split by hand.
	var tail string
	if _, err := fmt.Sscanf(string(encoded), "$argon2id$v=%d$t=%d,m=%d,p=%d$%s",
		&version, &p.Time, &p.Memory, &p.Threads, &tail); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	for i := 0; i < len(tail); i++ {
		if tail[i] == '$' {
			salt64, key64 = tail[:i], tail[i+1:]
			break
		}
	}
	if version != argon2.Version || salt64 == "" || key64 == "" {
		return false, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(salt64)
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(key64)
	if err != nil {
		return false, fmt.Errorf("%w: key: %v", ErrMalformedHash, err)
	}

	computed := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, computed) == 1, nil
}
