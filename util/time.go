package util

import (
	"time"

	"github.com/ugorji/go/codec"
)

// Timestamp is a time that encodes as an RFC 3339 string in UTC, or as nil
// when zero.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) CodecEncodeSelf(enc *codec.Encoder) {
	if t.IsZero() {
		enc.Encode(nil)
		return
	}
	enc.Encode(t.UTC().Format(time.RFC3339))
}

// Anything that isn't a valid RFC 3339 string decodes as the zero time.
func (t *Timestamp) CodecDecodeSelf(dec *codec.Decoder) {
	var v interface{}
	dec.Decode(&v)

	var s string
	switch v := v.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		*t = Timestamp{}
		return
	}

	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		*t = Timestamp{}
		return
	}
	*t = Timestamp{parsed.UTC()}
}
