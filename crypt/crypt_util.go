package crypt

import (
	"crypto/cipher"
	"crypto/md5"

	"github.com/awnumar/memguard"
	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

type scryptN int
type scryptR int
type scryptP int

// Hash the password with scrypt into enough bytes to fill every output, then
// copy the hash into the outputs in order.
func hashFillScrypt(N scryptN, r scryptR, p scryptP, salt Salt, password []byte, outputs ...[]byte) error {
	hash, err := hashScrypt(password, salt, N, r, p, outputsSize(outputs))
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(hash)

	return fillOutputs(hash, outputs)
}

func hashScrypt(password []byte, salt Salt, N scryptN, r scryptR, p scryptP, size int) ([]byte, error) {
	// scrypt validates the parameters itself, including that N is a power of
	// two greater than one.
	hash, err := scrypt.Key(password, salt[:], int(N), int(r), int(p), size)
	if err != nil {
		return nil, errors.Wrap(err, "cannot hash password")
	}
	return hash, nil
}

// Hash the password with PBKDF1 (PKCS #5 v1.5) using MD5, then copy the derived
// bytes into the outputs in order. PBKDF1 can't produce more than one digest's
// worth of output.
func hashFillPBKDF1MD5(iterations int, salt Salt, password []byte, outputs ...[]byte) error {
	if iterations < 1 {
		return errors.Errorf("iterations must be at least 1 (got: %d)", iterations)
	}

	size := outputsSize(outputs)
	if size > md5.Size {
		return errors.Errorf("PBKDF1 can derive at most %d bytes (requested: %d)", md5.Size, size)
	}

	h := md5.New()
	h.Write(password)
	h.Write(salt[:])
	digest := h.Sum(nil)
	for i := 1; i < iterations; i++ {
		next := md5.Sum(digest)
		memguard.WipeBytes(digest)
		digest = next[:]
	}
	defer memguard.WipeBytes(digest)

	return fillOutputs(digest, outputs)
}

func outputsSize(outputs [][]byte) int {
	size := 0
	for _, output := range outputs {
		size += len(output)
	}
	return size
}

// Copy the hash into the outputs, ensuring each got the correct number of
// bytes.
func fillOutputs(hash []byte, outputs [][]byte) error {
	offset := 0
	for _, output := range outputs {
		n := copy(output, hash[offset:])
		if n != len(output) {
			return errors.Errorf(
				"Incorrect number of key bytes copied (got: %d, expected: %d)",
				n, len(output),
			)
		}
		offset += n
	}
	return nil
}

// Pad the data to a multiple of the block size as described in PKCS #7. A full
// block of padding is added when the data is already aligned.
func padPKCS7(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

// Strip PKCS #7 padding, failing with ErrDecrypt if it's malformed. With a
// wrong key this is where decryption usually fails.
func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.Wrap(ErrDecrypt, "padded data isn't block aligned")
	}

	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, errors.Wrap(ErrDecrypt, "invalid padding length")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.Wrap(ErrDecrypt, "invalid padding bytes")
		}
	}

	return data[:len(data)-padding], nil
}

func encryptCBC(block cipher.Block, iv, plaintext []byte) ([]byte, error) {
	if len(iv) != block.BlockSize() {
		return nil, errors.Errorf("IV must be %d bytes (got: %d)", block.BlockSize(), len(iv))
	}

	padded := padPKCS7(plaintext, block.BlockSize())
	defer memguard.WipeBytes(padded)

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

func decryptCBC(block cipher.Block, iv, ciphertext []byte) ([]byte, error) {
	if len(iv) != block.BlockSize() {
		return nil, errors.Errorf("IV must be %d bytes (got: %d)", block.BlockSize(), len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, errors.Wrapf(ErrDecrypt,
			"ciphertext length %d isn't a multiple of the block size", len(ciphertext))
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := unpadPKCS7(padded, block.BlockSize())
	if err != nil {
		memguard.WipeBytes(padded)
		return nil, err
	}
	return plaintext, nil
}
