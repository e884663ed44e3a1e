package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// KeyMaterial holds one key pair per token kind so that an access token can
// never verify as a refresh token and vice versa.
type KeyMaterial struct {
	Access  KeyPair
	Refresh KeyPair
}

func (m *KeyMaterial) pair(k Kind) (KeyPair, error) {
	if m == nil {
		return KeyPair{}, errors.New("no key material")
	}
	switch k {
	case KindAccess:
		return m.Access, nil
	case KindRefresh:
		return m.Refresh, nil
	default:
		return KeyPair{}, fmt.Errorf("unknown token kind %s", k)
	}
}

// ParseKeyPair accepts PKCS#1 or PKCS#8 private keys and PKIX public keys.
func ParseKeyPair(privatePEM, publicPEM []byte) (KeyPair, error) {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: parse private key: %v", ErrCrypto, err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: parse public key: %v", ErrCrypto, err)
	}
	if !priv.PublicKey.Equal(pub) {
		return KeyPair{}, fmt.Errorf("%w: public key does not match private key", ErrCrypto)
	}
	return KeyPair{Private: priv, Public: pub}, nil
}

func LoadKeyMaterial(accessPriv, accessPub, refreshPriv, refreshPub []byte) (*KeyMaterial, error) {
	access, err := ParseKeyPair(accessPriv, accessPub)
	if err != nil {
		return nil, fmt.Errorf("access key pair: %w", err)
	}
	refresh, err := ParseKeyPair(refreshPriv, refreshPub)
	if err != nil {
		return nil, fmt.Errorf("refresh key pair: %w", err)
	}
	if access.Public.Equal(refresh.Public) {
		return nil, errors.New("access and refresh key pairs must differ")
	}
	return &KeyMaterial{Access: access, Refresh: refresh}, nil
}

// GenerateKeyPairPEM returns a fresh PKCS#8 private key and its PKIX public key.
func GenerateKeyPairPEM(bits int) (privatePEM, publicPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate rsa key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privatePEM, publicPEM, nil
}
