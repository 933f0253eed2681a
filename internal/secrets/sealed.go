package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/scrypt"
	"gopkg.in/yaml.v3"
)

// Sealed file layout: a YAML document carrying the scrypt salt and one
// AES-256-GCM blob per secret name. The key never touches disk; it is derived
// from a passphrase at open time.
type sealedFile struct {
	Salt    string            `yaml:"salt"`
	Secrets map[string]string `yaml:"secrets"`
}

// SealedFile decrypts secrets from a file produced by Seal.
type SealedFile struct {
	values map[string]string
}

// OpenSealed reads and decrypts path with a key derived from passphrase.
func OpenSealed(path, passphrase string) (*SealedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretUnavailable, err)
	}
	var f sealedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrSecretUnavailable, path, err)
	}
	salt, err := base64.StdEncoding.DecodeString(f.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad salt: %v", ErrSecretUnavailable, err)
	}
	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretUnavailable, err)
	}

	values := make(map[string]string, len(f.Secrets))
	for name, blob := range f.Secrets {
		pt, err := aeadOpen(aead, blob)
		if err != nil {
			return nil, fmt.Errorf("%w: decrypt %s: %v", ErrSecretUnavailable, name, err)
		}
		values[name] = pt
	}
	return &SealedFile{values: values}, nil
}

func (s *SealedFile) Get(name string) (string, error) {
	v, ok := s.values[name]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s not present in sealed file", ErrSecretUnavailable, name)
	}
	return v, nil
}

// Seal encrypts the given name/value pairs to path. Used by `gymsched seal`.
func Seal(path, passphrase string, values map[string]string) error {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return err
	}
	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return err
	}

	f := sealedFile{
		Salt:    base64.StdEncoding.EncodeToString(salt),
		Secrets: make(map[string]string, len(values)),
	}
	for name, v := range values {
		blob, err := aeadSeal(aead, v)
		if err != nil {
			return err
		}
		f.Secrets[name] = blob
	}

	out, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

func newAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("empty passphrase")
	}
	key, err := scrypt.Key([]byte(passphrase), salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func aeadSeal(aead cipher.AEAD, plaintext string) (string, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.RawStdEncoding.EncodeToString(append(nonce, ct...)), nil
}

func aeadOpen(aead cipher.AEAD, blobB64 string) (string, error) {
	buf, err := base64.RawStdEncoding.DecodeString(blobB64)
	if err != nil {
		return "", err
	}
	ns := aead.NonceSize()
	if len(buf) < ns {
		return "", fmt.Errorf("ciphertext too short")
	}
	pt, err := aead.Open(nil, buf[:ns], buf[ns:], nil)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
