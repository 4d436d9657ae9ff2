package io

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"

	"github.com/miscreant/miscreant.go"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const (
	nonceSize = 32
	keySize   = 32
)

var (
	hkdfSalt, _ = hex.DecodeString("000000000000000000024bead8df69990852c202db0e0097c1a12ea637d7e96d")

	encryptedErrPattern = regexp.MustCompile(`encrypted: ([A-Za-z0-9+/=]+)`)
)

// Encryption seals contract messages for the enclave and opens its answers. Every
// message carries a fresh nonce, and the same nonce is needed to read the answer.
type Encryption struct {
	privKey      []byte
	pubKey       []byte
	consensusKey []byte
}

// NewEncryption generates an x25519 key pair bound to the chain's consensus IO key.
func NewEncryption(consensusKey []byte) (*Encryption, error) {
	seed := make([]byte, keySize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return newEncryption(seed, consensusKey)
}

func newEncryption(seed, consensusKey []byte) (*Encryption, error) {
	if len(consensusKey) != keySize {
		return nil, fmt.Errorf("consensus io key must be %d bytes, got %d", keySize, len(consensusKey))
	}
	pubKey, err := curve25519.X25519(seed, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	return &Encryption{privKey: seed, pubKey: pubKey, consensusKey: consensusKey}, nil
}

func (e *Encryption) key(nonce []byte) ([]byte, error) {
	shared, err := curve25519.X25519(e.privKey, e.consensusKey)
	if err != nil {
		return nil, err
	}
	ikm := append(append([]byte{}, shared...), nonce...)
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, hkdfSalt, nil), key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encrypt seals codeHash followed by msg. The result is nonce, sender public key and
// ciphertext, in that order.
func (e *Encryption) Encrypt(codeHash string, msg []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return e.seal(nonce, append([]byte(codeHash), msg...))
}

func (e *Encryption) seal(nonce, plaintext []byte) ([]byte, error) {
	key, err := e.key(nonce)
	if err != nil {
		return nil, err
	}
	cipher, err := miscreant.NewAESCMACSIV(key)
	if err != nil {
		return nil, err
	}
	ciphertext, err := cipher.Seal(nil, plaintext, []byte{})
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, nonceSize+keySize+len(ciphertext))
	out = append(out, nonce...)
	out = append(out, e.pubKey...)
	return append(out, ciphertext...), nil
}

// Nonce returns the nonce a sealed message was encrypted with.
func Nonce(sealed []byte) []byte {
	if len(sealed) < nonceSize {
		return nil
	}
	return sealed[:nonceSize]
}

func (e *Encryption) Decrypt(ciphertext, nonce []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, nil
	}
	key, err := e.key(nonce)
	if err != nil {
		return nil, err
	}
	cipher, err := miscreant.NewAESCMACSIV(key)
	if err != nil {
		return nil, err
	}
	return cipher.Open(nil, ciphertext, []byte{})
}

// DecryptBase64 opens an answer whose plaintext is itself base64, as contract query
// results and execute data are.
func (e *Encryption) DecryptBase64(ciphertext, nonce []byte) ([]byte, error) {
	plaintext, err := e.Decrypt(ciphertext, nonce)
	if err != nil || len(plaintext) == 0 {
		return plaintext, err
	}
	return base64.StdEncoding.DecodeString(string(plaintext))
}

// DecryptErrors replaces every encrypted contract error in log with its plaintext.
// Errors sealed under another nonce are left as they are.
func (e *Encryption) DecryptErrors(log string, nonce []byte) string {
	return encryptedErrPattern.ReplaceAllStringFunc(log, func(match string) string {
		sub := encryptedErrPattern.FindStringSubmatch(match)
		ciphertext, err := base64.StdEncoding.DecodeString(sub[1])
		if err != nil {
			return match
		}
		plaintext, err := e.Decrypt(ciphertext, nonce)
		if err != nil {
			return match
		}
		return string(plaintext)
	})
}

// decryptAttribute opens a base64 event attribute, or returns it unchanged when it was
// never encrypted.
func (e *Encryption) decryptAttribute(value string, nonce []byte) string {
	ciphertext, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return value
	}
	plaintext, err := e.Decrypt(ciphertext, nonce)
	if err != nil || len(plaintext) == 0 {
		return value
	}
	return string(plaintext)
}
