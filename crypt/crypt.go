// Package crypt derives keys from passphrases and encrypts database payloads
// with the cipher suites used over the history of the container format.
package crypt

import (
	"crypto/rand"

	"github.com/awnumar/memguard"
	"github.com/pkg/errors"
)

// SaltSize is the length of the salt stored in every container header.
const SaltSize = 8

// Salt is mixed with the passphrase during key derivation. It's stored
// unencrypted alongside the ciphertext and generated once per database.
type Salt [SaltSize]byte

// ErrDecrypt is returned when a ciphertext doesn't decrypt cleanly under a key.
// The block cipher can't tell a wrong key from damaged data, so neither can we.
var ErrDecrypt = errors.New("unable to decrypt ciphertext")

// ErrWipedKey is returned when a key is used after it has been wiped.
var ErrWipedKey = errors.New("key material has been wiped")

// NewSalt returns a securely-random salt.
func NewSalt() (Salt, error) {
	var salt Salt
	if _, err := rand.Read(salt[:]); err != nil {
		return Salt{}, errors.Wrap(err, "cannot generate salt")
	}
	return salt, nil
}

// Key holds the key and initialization vector derived for one suite. Keys are
// meant to live for a single load or save; call Wipe once done with one.
type Key struct {
	suite Suite
	key   []byte
	iv    []byte
}

// Build a key from the given material. The inputs are copied and then wiped.
func newKey(suite Suite, key, iv []byte) *Key {
	k := &Key{
		suite: suite,
		key:   make([]byte, len(key)),
		iv:    make([]byte, len(iv)),
	}
	copy(k.key, key)
	copy(k.iv, iv)
	memguard.WipeBytes(key)
	memguard.WipeBytes(iv)
	return k
}

// Suite returns the suite the key was derived for.
func (k *Key) Suite() Suite {
	return k.suite
}

// Wipe zeroes the key material. Using the key afterwards yields ErrWipedKey.
func (k *Key) Wipe() {
	if k == nil {
		return
	}
	memguard.WipeBytes(k.key)
	memguard.WipeBytes(k.iv)
	k.key = nil
	k.iv = nil
}

func (k *Key) wiped() bool {
	return k == nil || k.key == nil
}

// Derive turns a passphrase and salt into key material for the given suite.
// Derivation is deterministic, which is what makes password checks possible.
func Derive(suite Suite, passphrase []byte, salt Salt) (*Key, error) {
	record, ok := Suites.Find(suite)
	if !ok {
		return nil, errors.Errorf("unknown cipher suite %d", suite)
	}
	return record.Derive(passphrase, salt)
}

// Encrypt some plaintext under the given key, using the key's suite.
func Encrypt(key *Key, plaintext []byte) ([]byte, error) {
	record, err := recordFor(key)
	if err != nil {
		return nil, err
	}
	return record.Encrypt(key, plaintext)
}

// Decrypt some ciphertext under the given key, using the key's suite.
func Decrypt(key *Key, ciphertext []byte) ([]byte, error) {
	record, err := recordFor(key)
	if err != nil {
		return nil, err
	}
	return record.Decrypt(key, ciphertext)
}

func recordFor(key *Key) (cryptSuiteRecord, error) {
	if key.wiped() {
		return cryptSuiteRecord{}, ErrWipedKey
	}
	record, ok := Suites.Find(key.suite)
	if !ok {
		return cryptSuiteRecord{}, errors.Errorf("unknown cipher suite %d", key.suite)
	}
	return record, nil
}
