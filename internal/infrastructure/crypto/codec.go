// Package crypto seals the task records kept on the device and the task
// content sent to the remote row store.
//
// Ciphertext is "enc:v1:" followed by base64url(nonce || sealed payload). The
// key is derived from the configured secret and, when present, the signed-in
// user id. That binding is obfuscation against casual inspection of the device
// or the database, not access control: anyone holding the secret can derive
// every key.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/taskmaster/daybook/internal/infrastructure/logger"
)

// Prefix marks a value produced by Encrypt or EncryptText.
const Prefix = "enc:v1:"

const anonymousIdentity = "anonymous"

var (
	ErrEmptySecret = errors.New("encryption secret is empty")
	errMalformed   = errors.New("malformed ciphertext")
)

// Codec encrypts and decrypts payloads under identity-bound keys
type Codec struct {
	secret []byte
	logger *logger.Logger

	mu   sync.RWMutex
	keys map[string][]byte
}

// NewCodec creates a codec for the given secret
func NewCodec(secret string, log *logger.Logger) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Codec{
		secret: []byte(secret),
		logger: log.WithComponent("crypto"),
		keys:   make(map[string][]byte),
	}, nil
}

// IsEncrypted reports whether s carries the ciphertext prefix
func IsEncrypted(s string) bool {
	return strings.HasPrefix(s, Prefix)
}

// Encrypt JSON-encodes payload and seals it
func (c *Codec) Encrypt(payload any, identity string) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return c.seal(raw, identity)
}

// EncryptText seals a single string field
func (c *Codec) EncryptText(text, identity string) (string, error) {
	return c.seal([]byte(text), identity)
}

// Decrypt returns the plaintext bytes of data. It never fails: a value without
// the prefix that parses as JSON is returned as-is (records written before
// encryption existed), and anything undecryptable is returned unchanged for
// the caller to reject on shape.
func (c *Codec) Decrypt(data, identity string) []byte {
	if IsEncrypted(data) {
		plain, err := c.open(data, identity)
		if err == nil {
			return plain
		}
		c.logger.Warnw("Failed to decrypt payload, falling back to raw value",
			"error", err.Error(),
		)
		return []byte(data)
	}

	if !json.Valid([]byte(data)) {
		c.logger.Debugw("Payload is neither ciphertext nor JSON", "length", len(data))
	}
	return []byte(data)
}

// DecryptInto decrypts data and decodes the JSON result into v. It reports
// false when the result is not valid JSON of the expected shape.
func (c *Codec) DecryptInto(data, identity string, v any) bool {
	plain := c.Decrypt(data, identity)
	if err := json.Unmarshal(plain, v); err != nil {
		c.logger.Warnw("Decrypted payload has unexpected shape", "error", err.Error())
		return false
	}
	return true
}

// DecryptText is the string counterpart of EncryptText. Values without the
// prefix are returned unchanged.
func (c *Codec) DecryptText(text, identity string) string {
	if !IsEncrypted(text) {
		return text
	}
	plain, err := c.open(text, identity)
	if err != nil {
		c.logger.Warnw("Failed to decrypt text field", "error", err.Error())
		return text
	}
	return string(plain)
}

func (c *Codec) seal(plain []byte, identity string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key(identity))
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plain, nil)
	return Prefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (c *Codec) open(data, identity string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(data, Prefix))
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	aead, err := chacha20poly1305.NewX(c.key(identity))
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, errMalformed
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("open ciphertext: %w", err)
	}
	return plain, nil
}

// key derives (and caches) the key for identity
func (c *Codec) key(identity string) []byte {
	if identity == "" {
		identity = anonymousIdentity
	}

	c.mu.RLock()
	k, ok := c.keys[identity]
	c.mu.RUnlock()
	if ok {
		return k
	}

	k = make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, c.secret, nil, []byte("daybook:"+identity))
	if _, err := io.ReadFull(r, k); err != nil {
		// hkdf only fails past 255*HashLen bytes
		panic(fmt.Sprintf("derive key: %v", err))
	}

	c.mu.Lock()
	c.keys[identity] = k
	c.mu.Unlock()
	return k
}
