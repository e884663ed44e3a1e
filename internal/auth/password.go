package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
)

type PasswordConfig struct {
	Memory      uint32 `mapstructure:"memory_kib"`
	Time        uint32 `mapstructure:"time"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

func DefaultPasswordConfig() PasswordConfig {
	return PasswordConfig{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c PasswordConfig) validate() error {
	switch {
	case c.Memory < 8*1024:
		return errors.New("argon2 memory must be at least 8192 KiB")
	case c.Time < 1:
		return errors.New("argon2 time must be at least 1")
	case c.Parallelism < 1:
		return errors.New("argon2 parallelism must be at least 1")
	case c.SaltLength < 16:
		return errors.New("argon2 salt length must be at least 16")
	case c.KeyLength < 16:
		return errors.New("argon2 key length must be at least 16")
	}
	return nil
}

// Hasher produces argon2id hashes in PHC string format. The password is
// keyed with a server-side pepper (HMAC-SHA256) before hashing; the pepper
// lives in an encrypted memguard enclave between uses.
type Hasher struct {
	cfg    PasswordConfig
	pepper *memguard.Enclave
}

// NewHasher seals pepper into an enclave. The pepper slice is wiped.
func NewHasher(pepper []byte, cfg PasswordConfig) (*Hasher, error) {
	if len(pepper) == 0 {
		return nil, fmt.Errorf("%w: empty pepper", ErrCrypto)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return &Hasher{cfg: cfg, pepper: memguard.NewEnclave(pepper)}, nil
}

func (h *Hasher) Hash(password string) (string, error) {
	keyed, err := h.peppered(password)
	if err != nil {
		return "", err
	}
	salt := make([]byte, h.cfg.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: salt: %v", ErrCrypto, err)
	}
	sum := argon2.IDKey(keyed, salt, h.cfg.Time, h.cfg.Memory, h.cfg.Parallelism, h.cfg.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.cfg.Memory, h.cfg.Time, h.cfg.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify reports whether password matches encoded. A malformed hash is an
// ErrCrypto error, never a plain mismatch.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	p, err := parsePHC(encoded)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	keyed, err := h.peppered(password)
	if err != nil {
		return false, err
	}
	sum := argon2.IDKey(keyed, p.salt, p.time, p.memory, p.parallelism, uint32(len(p.sum)))
	return subtle.ConstantTimeCompare(sum, p.sum) == 1, nil
}

func (h *Hasher) peppered(password string) ([]byte, error) {
	buf, err := h.pepper.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open pepper: %v", ErrCrypto, err)
	}
	defer buf.Destroy()

	mac := hmac.New(sha256.New, buf.Bytes())
	mac.Write([]byte(password))
	return mac.Sum(nil), nil
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	sum         []byte
}

// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
func parsePHC(s string) (phc, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" {
		return phc{}, errors.New("malformed password hash")
	}
	if parts[1] != "argon2id" {
		return phc{}, fmt.Errorf("unsupported algorithm %q", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return phc{}, fmt.Errorf("unsupported argon2 version %q", parts[2])
	}

	var p phc
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.parallelism); err != nil {
		return phc{}, fmt.Errorf("malformed argon2 params %q", parts[3])
	}
	if p.memory == 0 || p.time == 0 || p.parallelism == 0 {
		return phc{}, fmt.Errorf("zero argon2 param in %q", parts[3])
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(p.salt) == 0 {
		return phc{}, errors.New("malformed salt")
	}
	if p.sum, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(p.sum) == 0 {
		return phc{}, errors.New("malformed hash")
	}
	return p, nil
}
