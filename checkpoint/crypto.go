package checkpoint

import (
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
)

// encrypt seals data with a fresh random nonce prepended to the
// ciphertext, so decrypt needs only the shared key.
func encrypt(data []byte, key *[32]byte) ([]byte, error) {
	if key == nil {
		return nil, errors.New("checkpoint: encryption requested but no key provided")
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, errors.Wrap(err, "checkpoint: generate nonce")
	}
	out := make([]byte, 0, len(nonce)+len(data)+secretbox.Overhead)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, data, &nonce, key), nil
}

// decrypt is the inverse of encrypt.
func decrypt(data []byte, key *[32]byte) ([]byte, error) {
	if key == nil {
		return nil, errors.New("checkpoint: decryption requested but no key provided")
	}
	if len(data) < 24 {
		return nil, errors.New("checkpoint: encrypted shard shorter than nonce")
	}
	var nonce [24]byte
	copy(nonce[:], data[:24])
	out, ok := secretbox.Open(nil, data[24:], &nonce, key)
	if !ok {
		return nil, errors.New("checkpoint: shard decryption failed (wrong key or corrupt data)")
	}
	return out, nil
}
