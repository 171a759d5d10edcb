package crypt

import (
	"crypto/aes"
)

// Expose our record so it can be added to the suite list.
var cryptSuiteRecordCurrent cryptSuiteRecord = cryptSuiteRecord{
	SuiteCurrent, deriveCurrent, encryptCurrent, decryptCurrent,
}

// The scrypt cost parameters are fixed by the format since the container has
// nowhere to store them. Memory use is roughly 128 * N * r bytes (32MiB).
const (
	currentN scryptN = 1 << 15
	currentR scryptR = 8
	currentP scryptP = 1
)

type aes256Key [32]byte
type aesIV [aes.BlockSize]byte

// Hash the passphrase into an AES-256 key and a CBC IV.
func deriveCurrent(passphrase []byte, salt Salt) (*Key, error) {
	var (
		key aes256Key
		iv  aesIV
	)

	err := hashFillScrypt(currentN, currentR, currentP, salt, passphrase, key[:], iv[:])
	if err != nil {
		return nil, err
	}

	return newKey(SuiteCurrent, key[:], iv[:]), nil
}

func encryptCurrent(key *Key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key.key)
	if err != nil {
		return nil, err
	}
	return encryptCBC(block, key.iv, plaintext)
}

func decryptCurrent(key *Key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key.key)
	if err != nil {
		return nil, err
	}
	return decryptCBC(block, key.iv, ciphertext)
}
