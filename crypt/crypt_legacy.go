package crypt

import (
	"crypto/des"
)

// Expose our record so it can be added to the suite list.
var cryptSuiteRecordLegacy cryptSuiteRecord = cryptSuiteRecord{
	SuiteLegacy, deriveLegacy, encryptLegacy, decryptLegacy,
}

// The iteration count used by every pre-3 container.
const legacyIterations = 20

type desKey [8]byte
type desIV [des.BlockSize]byte

// Derive a DES key and IV the way PBEWithMD5AndDES does: 20 rounds of MD5 over
// the passphrase and salt, split into an 8-byte key and an 8-byte IV.
func deriveLegacy(passphrase []byte, salt Salt) (*Key, error) {
	var (
		key desKey
		iv  desIV
	)

	err := hashFillPBKDF1MD5(legacyIterations, salt, passphrase, key[:], iv[:])
	if err != nil {
		return nil, err
	}

	return newKey(SuiteLegacy, key[:], iv[:]), nil
}

// Only used to produce compatibility data; the container format never writes
// this suite.
func encryptLegacy(key *Key, plaintext []byte) ([]byte, error) {
	block, err := des.NewCipher(key.key)
	if err != nil {
		return nil, err
	}
	return encryptCBC(block, key.iv, plaintext)
}

func decryptLegacy(key *Key, ciphertext []byte) ([]byte, error) {
	block, err := des.NewCipher(key.key)
	if err != nil {
		return nil, err
	}
	return decryptCBC(block, key.iv, ciphertext)
}
