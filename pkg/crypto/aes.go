package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prefix 标识配置文件中已加密的字段
const Prefix = "ENC:"

// Crypter 用 AES-256-GCM 加解密配置中的口令
type Crypter struct {
	gcm cipher.AEAD
}

// NewCrypter key 必须是 32 字节
func NewCrypter(key []byte) (*Crypter, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size: expected %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Crypter{gcm: gcm}, nil
}

// Encrypt 输出 ENC:<Base64(Nonce + Ciphertext)>, 空串和已加密的值原样返回
func (c *Crypter) Encrypt(plaintext string) (string, error) {
	if plaintext == "" || IsEncrypted(plaintext) {
		return plaintext, nil
	}
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt 解密 ENC: 前缀的值, 明文值原样返回(兼容手写的配置)
func (c *Crypter) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", err
	}
	n := c.gcm.NonceSize()
	if len(data) < n {
		return "", errors.New("ciphertext too short")
	}
	plain, err := c.gcm.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	return string(plain), nil
}

func IsEncrypted(s string) bool {
	return strings.HasPrefix(s, Prefix)
}
