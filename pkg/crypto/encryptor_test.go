package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptorRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	enc, err := NewEncryptor(key)
	require.NoError(t, err)

	plaintext := []byte("candidate resume contents")
	ciphertext, err := enc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)

	// A second encryptor parsing the same identity can read it too.
	other, err := NewEncryptor(key)
	require.NoError(t, err)
	decrypted, err = other.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptorEphemeralIdentity(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt([]byte("hello"))
	require.NoError(t, err)

	// A fresh identity cannot decrypt another identity's ciphertext.
	stranger, err := NewEncryptor("")
	require.NoError(t, err)
	_, err = stranger.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestNewEncryptorRejectsBadKey(t *testing.T) {
	_, err := NewEncryptor("not-an-age-identity")
	assert.Error(t, err)
}
