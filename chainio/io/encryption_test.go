package io

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCodeHash = "1c6a85a1ae2bfc2ff0c5d0ba4d1ca1c5bbbd10c5a4b0f9d2e4bb6e9f3a1f0c77"

// testPair returns a sender and the enclave side that shares its keys.
func testPair(t *testing.T) (*Encryption, *Encryption) {
	t.Helper()
	enclaveSeed := bytes.Repeat([]byte{0x02}, keySize)
	enclavePub, err := newEncryption(enclaveSeed, bytes.Repeat([]byte{0x09}, keySize))
	require.NoError(t, err)

	sender, err := newEncryption(bytes.Repeat([]byte{0x01}, keySize), enclavePub.pubKey)
	require.NoError(t, err)
	enclave, err := newEncryption(enclaveSeed, sender.pubKey)
	require.NoError(t, err)
	return sender, enclave
}

// answer seals plaintext the way the enclave answers a message sent with nonce.
func answer(t *testing.T, enclave *Encryption, nonce, plaintext []byte) []byte {
	t.Helper()
	sealed, err := enclave.seal(nonce, plaintext)
	require.NoError(t, err)
	return sealed[nonceSize+keySize:]
}

func TestEncryptLayout(t *testing.T) {
	sender, enclave := testPair(t)

	sealed, err := sender.Encrypt(testCodeHash, []byte(`{"mint_nft":{}}`))
	require.NoError(t, err)
	require.Greater(t, len(sealed), nonceSize+keySize)
	assert.Equal(t, sender.pubKey, sealed[nonceSize:nonceSize+keySize])

	plaintext, err := enclave.Decrypt(sealed[nonceSize+keySize:], Nonce(sealed))
	require.NoError(t, err)
	assert.Equal(t, testCodeHash+`{"mint_nft":{}}`, string(plaintext))
}

func TestEncryptFreshNonce(t *testing.T) {
	sender, _ := testPair(t)
	first, err := sender.Encrypt(testCodeHash, []byte(`{}`))
	require.NoError(t, err)
	second, err := sender.Encrypt(testCodeHash, []byte(`{}`))
	require.NoError(t, err)
	assert.NotEqual(t, Nonce(first), Nonce(second))
	assert.NotEqual(t, first, second)
}

func TestDecryptWrongNonce(t *testing.T) {
	sender, enclave := testPair(t)
	nonce := bytes.Repeat([]byte{0x07}, nonceSize)
	sealed := answer(t, enclave, nonce, []byte("hello"))

	_, err := sender.Decrypt(sealed, bytes.Repeat([]byte{0x08}, nonceSize))
	assert.Error(t, err)

	plaintext, err := sender.Decrypt(sealed, nonce)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(plaintext))
}

func TestDecryptBase64(t *testing.T) {
	sender, enclave := testPair(t)
	nonce := bytes.Repeat([]byte{0x07}, nonceSize)
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"num_tokens":{"count":3}}`))

	got, err := sender.DecryptBase64(answer(t, enclave, nonce, []byte(encoded)), nonce)
	require.NoError(t, err)
	assert.JSONEq(t, `{"num_tokens":{"count":3}}`, string(got))

	got, err = sender.DecryptBase64(nil, nonce)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecryptErrors(t *testing.T) {
	sender, enclave := testPair(t)
	nonce := bytes.Repeat([]byte{0x07}, nonceSize)
	sealed := answer(t, enclave, nonce, []byte(`{"generic_err":{"msg":"Token ID 001 is already in use"}}`))
	log := "failed to execute message; message index: 0: encrypted: " +
		base64.StdEncoding.EncodeToString(sealed) + ": execute contract failed"

	got := sender.DecryptErrors(log, nonce)
	assert.Contains(t, got, "Token ID 001 is already in use")
	assert.NotContains(t, got, "encrypted:")

	assert.Equal(t, log, sender.DecryptErrors(log, bytes.Repeat([]byte{0x08}, nonceSize)))
	assert.Equal(t, "out of gas", sender.DecryptErrors("out of gas", nonce))
}

func TestNewEncryptionBadKey(t *testing.T) {
	_, err := NewEncryption([]byte{0x01, 0x02})
	assert.Error(t, err)
	assert.Nil(t, Nonce([]byte{0x01}))
}
