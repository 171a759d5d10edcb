package database

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var unicodeText = "a®Ďƃɕʶ ̂ΆԃЌԵﬗאر݃ݓޤ‎߅ࡄখஷഖคබໄ၇ꩦႦᄓᎄⷄꬓᏄᑖᣆᚅᛕᜅᜤᝄᝣ‴№⁷✚z"

func samplePayload() *Payload {
	return &Payload{
		Revision: 7,
		Options: Options{
			RemoteLocation: "https://example.com/upm/",
			AuthEntry:      "example",
		},
		Accounts: []Account{
			{"example", "jane", "hunter2", "https://example.com", "notes\nover lines"},
			{"empty", "", "", "", ""},
			{unicodeText, unicodeText, unicodeText, unicodeText, unicodeText},
		},
	}
}

func TestEncodeAndDecode(t *testing.T) {
	p := samplePayload()

	encoded, err := Encode(p, UTF8)
	require.NoError(t, err)

	decoded, err := Decode(encoded, UTF8)
	require.NoError(t, err)

	assert.Equal(t, p, decoded)
}

func TestEncodeAndDecodeNoAccounts(t *testing.T) {
	encoded, err := Encode(&Payload{}, UTF8)
	require.NoError(t, err)

	// revision, two empty option fields and the count
	assert.Len(t, encoded, 4*lengthSize)

	decoded, err := Decode(encoded, UTF8)
	require.NoError(t, err)
	assert.Equal(t, 0, decoded.Revision)
	assert.Empty(t, decoded.Accounts)
	assert.Equal(t, Options{}, decoded.Options)
}

// The layout is part of the file format, so pin it down byte for byte.
func TestEncodeLayout(t *testing.T) {
	p := &Payload{
		Revision: 258,
		Options:  Options{RemoteLocation: "r", AuthEntry: ""},
		Accounts: []Account{{Name: "n", Password: "pw"}},
	}

	encoded, err := Encode(p, UTF8)
	require.NoError(t, err)

	expected := []byte{
		0, 0, 1, 2, // revision
		0, 0, 0, 1, 'r', // remote location
		0, 0, 0, 0, // auth entry
		0, 0, 0, 1, // count
		0, 0, 0, 1, 'n', // name
		0, 0, 0, 0, // user id
		0, 0, 0, 2, 'p', 'w', // password
		0, 0, 0, 0, // url
		0, 0, 0, 0, // notes
	}
	assert.Equal(t, expected, encoded)
}

// Every possible truncation of a valid payload must be reported as malformed,
// never as some other error and never as success.
func TestDecodeTruncatedFails(t *testing.T) {
	encoded, err := Encode(samplePayload(), UTF8)
	require.NoError(t, err)

	for size := len(encoded) - 1; size >= 0; size-- {
		_, err := Decode(encoded[:size], UTF8)
		assert.True(t, errors.Is(err, ErrMalformed), "size %d: %v", size, err)
	}
}

func TestDecodeTrailingBytesFails(t *testing.T) {
	encoded, err := Encode(samplePayload(), UTF8)
	require.NoError(t, err)

	_, err = Decode(append(encoded, 0), UTF8)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestDecodeHugeCountFails(t *testing.T) {
	encoded, err := Encode(&Payload{}, UTF8)
	require.NoError(t, err)

	binary.BigEndian.PutUint32(encoded[len(encoded)-lengthSize:], 1000)

	_, err = Decode(encoded, UTF8)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestDecodeNegativeRevisionFails(t *testing.T) {
	encoded, err := Encode(&Payload{}, UTF8)
	require.NoError(t, err)

	encoded[0] = 0x80

	_, err = Decode(encoded, UTF8)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestDecodeFieldPastEndFails(t *testing.T) {
	encoded, err := Encode(samplePayload(), UTF8)
	require.NoError(t, err)

	// the remote location's length
	binary.BigEndian.PutUint32(encoded[lengthSize:], uint32(len(encoded)))

	_, err = Decode(encoded, UTF8)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestDecodeInvalidUTF8Fails(t *testing.T) {
	encoded, err := Encode(&Payload{Options: Options{RemoteLocation: "ab"}}, UTF8)
	require.NoError(t, err)

	encoded[2*lengthSize] = 0xff

	_, err = Decode(encoded, UTF8)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestDecodeEmptyAccountNameFails(t *testing.T) {
	w := &fieldWriter{charset: UTF8}
	require.NoError(t, w.writeInt("revision", 1))
	require.NoError(t, writeOptions(w, &Options{}))
	require.NoError(t, w.writeInt("account count", 1))
	for i := 0; i < 5; i++ {
		require.NoError(t, w.writeString("field", ""))
	}

	_, err := Decode(w.buf, UTF8)
	assert.True(t, errors.Is(err, ErrMalformed))
}

// Random bytes, like the output of decrypting with a wrong key, must never
// decode.
func TestDecodeGarbageFails(t *testing.T) {
	garbage := []byte(strings.Repeat("\xde\xad\xbe\xef", 64))

	_, err := Decode(garbage, UTF8)
	assert.True(t, errors.Is(err, ErrMalformed))

	_, _, err = DecodeLegacy(garbage, Windows1252)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestEncodeEmptyNameFails(t *testing.T) {
	_, err := Encode(&Payload{Accounts: []Account{{UserID: "x"}}}, UTF8)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestEncodeDuplicateNamesFails(t *testing.T) {
	_, err := Encode(&Payload{Accounts: []Account{{Name: "a"}, {Name: "a"}}}, UTF8)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestEncodeNegativeRevisionFails(t *testing.T) {
	_, err := Encode(&Payload{Revision: -1}, UTF8)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestEncodeInvalidUTF8Fails(t *testing.T) {
	_, err := Encode(&Payload{Accounts: []Account{{Name: "bad\xff"}}}, UTF8)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestEncodeAndDecodeLegacy110(t *testing.T) {
	p := samplePayload()
	p.Accounts = p.Accounts[:2]

	encoded, err := EncodeLegacy(p, LegacyHeader110, Windows1252)
	require.NoError(t, err)

	decoded, header, err := DecodeLegacy(encoded, Windows1252)
	require.NoError(t, err)

	assert.Equal(t, LegacyHeader110, header)
	assert.Equal(t, p, decoded)
}

// 1.0.0 payloads have no revision or options.
func TestEncodeAndDecodeLegacy100(t *testing.T) {
	p := samplePayload()
	p.Accounts = p.Accounts[:2]

	encoded, err := EncodeLegacy(p, LegacyHeader100, Windows1252)
	require.NoError(t, err)

	decoded, header, err := DecodeLegacy(encoded, Windows1252)
	require.NoError(t, err)

	assert.Equal(t, LegacyHeader100, header)
	assert.Equal(t, 0, decoded.Revision)
	assert.Equal(t, Options{}, decoded.Options)
	assert.Equal(t, p.Accounts, decoded.Accounts)
}

func TestEncodeLegacyUnknownHeaderFails(t *testing.T) {
	_, err := EncodeLegacy(&Payload{}, "1.2.0", Windows1252)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestDecodeLegacyUnknownHeaderFails(t *testing.T) {
	w := &fieldWriter{charset: Windows1252}
	require.NoError(t, w.writeString("header", "0.9.0"))
	require.NoError(t, w.writeInt("account count", 0))

	_, _, err := DecodeLegacy(w.buf, Windows1252)
	assert.True(t, errors.Is(err, ErrMalformed))
}

// Legacy files stored text in a single-byte charset, so "é" is one byte there.
func TestLegacyCharsetIsHonored(t *testing.T) {
	p := &Payload{Accounts: []Account{{Name: "café"}}}

	legacy, err := EncodeLegacy(p, LegacyHeader100, Windows1252)
	require.NoError(t, err)
	assert.Contains(t, string(legacy), "caf\xe9")

	decoded, _, err := DecodeLegacy(legacy, Windows1252)
	require.NoError(t, err)
	assert.Equal(t, "café", decoded.Accounts[0].Name)

	current, err := Encode(p, UTF8)
	require.NoError(t, err)
	assert.Contains(t, string(current), "café")
}

func TestLegacyCharsetRejectsUnrepresentableText(t *testing.T) {
	p := &Payload{Accounts: []Account{{Name: "日本"}}}

	_, err := EncodeLegacy(p, LegacyHeader100, Windows1252)
	assert.True(t, errors.Is(err, ErrInvalid))
}
