package wechat

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	appErr "github.com/xxxsen/bbtalk/internal/pkg/errors"
)

// Codec implements the WeChat callback protocol: SHA-1 signature checks and
// the AES-256-CBC envelope used in secure mode. The 43-character
// EncodingAESKey decodes (with one "=" pad) to the 32-byte cipher key; the
// first 16 bytes double as the IV.
type Codec struct {
	token string
	key   []byte
}

func NewCodec(token, encodingAESKey string) (*Codec, error) {
	if token == "" {
		return nil, fmt.Errorf("token is required")
	}
	key, err := base64.StdEncoding.DecodeString(encodingAESKey + "=")
	if err != nil {
		return nil, fmt.Errorf("decode encoding aes key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encoding aes key must decode to 32 bytes, got %d", len(key))
	}
	return &Codec{token: token, key: key}, nil
}

// Signature computes the SHA-1 hex digest over the sorted concatenation of
// parts. The handshake signs {token, timestamp, nonce}; message signatures
// add the encrypted body as a fourth part.
func (c *Codec) Signature(timestamp, nonce string, extra ...string) string {
	parts := append([]string{c.token, timestamp, nonce}, extra...)
	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "")))
	return hex.EncodeToString(sum[:])
}

// VerifyHandshake checks the GET verification challenge.
func (c *Codec) VerifyHandshake(signature, timestamp, nonce string) bool {
	expect := c.Signature(timestamp, nonce)
	return hmac.Equal([]byte(expect), []byte(signature))
}

// Encrypt base64-encodes msg for transport safety, then applies
// AES-256-CBC with PKCS#7 padding and returns the base64 ciphertext.
func (c *Codec) Encrypt(msg string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	plain := pkcs7Pad([]byte(base64.StdEncoding.EncodeToString([]byte(msg))), block.BlockSize())
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, c.key[:aes.BlockSize]).CryptBlocks(out, plain)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (c *Codec) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrBadEnvelope, err)
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 || len(raw)%block.BlockSize() != 0 {
		return "", appErr.ErrBadEnvelope
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, c.key[:aes.BlockSize]).CryptBlocks(out, raw)
	out, err = pkcs7Unpad(out, block.BlockSize())
	if err != nil {
		return "", err
	}
	msg, err := base64.StdEncoding.DecodeString(string(out))
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrBadEnvelope, err)
	}
	return string(msg), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, appErr.ErrBadEnvelope
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize || pad > len(data) {
		return nil, appErr.ErrBadEnvelope
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, appErr.ErrBadEnvelope
		}
	}
	return data[:len(data)-pad], nil
}

func randomNonce() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
