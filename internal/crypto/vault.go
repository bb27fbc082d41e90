package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

const ivLen = 12

// DecryptError marks a failed token decryption. By far the most common cause
// in operation is AI_KEY_ENCRYPTION_SECRET differing from the secret that was
// active when the key was saved, so the message calls that out explicitly.
type DecryptError struct {
	msg string
}

func (e *DecryptError) Error() string {
	return e.msg
}

func newDecryptError(msg string) *DecryptError {
	return &DecryptError{msg: msg}
}

// Vault encrypts provider API keys at rest with AES-256-GCM. The configured
// secret may be any length; it is hashed down to a stable 32-byte key.
// Tokens have the form ivB64url.tagB64url.ciphertextB64url and differ on
// every call for the same plaintext.
type Vault struct {
	key []byte
}

func NewVault(secret string) (*Vault, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("encryption secret is empty")
	}
	key := sha256.Sum256([]byte(secret))
	return &Vault{key: key[:]}, nil
}

func (v *Vault) EncryptString(plaintext string) (string, error) {
	aead, err := v.aead()
	if err != nil {
		return "", err
	}
	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("iv: %w", err)
	}
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	// Seal appends the GCM tag to the ciphertext; the token keeps them apart.
	tagStart := len(sealed) - aead.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	enc := base64.RawURLEncoding
	return enc.EncodeToString(iv) + "." + enc.EncodeToString(tag) + "." + enc.EncodeToString(ciphertext), nil
}

func (v *Vault) DecryptString(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", newDecryptError("invalid encrypted api key format")
	}

	enc := base64.RawURLEncoding
	iv, err := enc.DecodeString(parts[0])
	if err != nil {
		return "", newDecryptError("invalid encrypted api key format")
	}
	tag, err := enc.DecodeString(parts[1])
	if err != nil {
		return "", newDecryptError("invalid encrypted api key format")
	}
	ciphertext, err := enc.DecodeString(parts[2])
	if err != nil {
		return "", newDecryptError("invalid encrypted api key format")
	}

	aead, err := v.aead()
	if err != nil {
		return "", err
	}
	if len(iv) != aead.NonceSize() {
		return "", newDecryptError("invalid encrypted api key format")
	}
	plaintext, err := aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", newDecryptError("api key decryption failed: AI_KEY_ENCRYPTION_SECRET does not match the secret used when the config was saved")
	}
	return string(plaintext), nil
}

func (v *Vault) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aead, nil
}
