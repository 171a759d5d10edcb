package crypt

import (
	"crypto/rand"
)

// Plaintexts shared by the tests in this package. They cover the block
// boundaries of both ciphers and something shaped like a real record.
var (
	emptySample      = []byte{}
	blockSample      = []byte("0123456789abcdef")
	passphraseSample = []byte("correct horse battery staple")
	recordSample     = []byte("\x00\x00\x00\x07example\x00\x00\x00\x04jane\x00\x00\x00\x07hunter2")
	unicodeSample    = []byte("pässwörd ключ 密码 🔑")
)

var samples = [][]byte{
	emptySample,
	[]byte("x"),
	blockSample[:8],
	blockSample,
	passphraseSample,
	recordSample,
	unicodeSample,
}

var randomBytes = make([]byte, 512)
var _, _ = rand.Read(randomBytes)

var salt Salt
var _ = copy(salt[:], randomBytes)
