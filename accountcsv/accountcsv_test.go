package accountcsv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swargo/upm-swing/database"
)

func TestMarshalAndUnmarshal(t *testing.T) {
	accounts := []database.Account{
		{Name: "example", UserID: "jane", Password: "hunter2", URL: "https://example.com", Notes: "plain"},
		{Name: "quotes", UserID: `say "hi"`, Password: "a,b,c", URL: "", Notes: "line one\nline two"},
		{Name: "empty", UserID: "", Password: "", URL: "", Notes: ""},
		{Name: "ünïcödé", UserID: "名前", Password: "пароль", URL: "https://例え.jp", Notes: "🙂"},
	}

	var buf bytes.Buffer
	require.NoError(t, Marshal(&buf, accounts))

	decoded, err := Unmarshal(&buf)
	require.NoError(t, err)
	assert.Equal(t, accounts, decoded)
}

func TestMarshalNoHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Marshal(&buf, []database.Account{{Name: "a", UserID: "b", Password: "c", URL: "d", Notes: "e"}}))
	assert.Equal(t, "a,b,c,d,e\n", buf.String())
}

func TestUnmarshalEmpty(t *testing.T) {
	accounts, err := Unmarshal(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestUnmarshalRowShape(t *testing.T) {
	for input, expected := range map[string]RowShapeError{
		"a,b,c,d\n":                      {Row: 1, Columns: 4},
		"a,b,c,d,e,f\n":                  {Row: 1, Columns: 6},
		"a,b,c,d,e\na,b,c,d,e\nx,y,z\n":  {Row: 3, Columns: 3},
		"a,b,c,d,e\n\n\nx,y,z\n":         {Row: 4, Columns: 3},
		"a,\"multi\nline\",c,d,e\nx,y\n": {Row: 3, Columns: 2},
	} {
		_, err := Unmarshal(strings.NewReader(input))
		assert.True(t, errors.Is(err, ErrRowShape), "%q: %v", input, err)

		var shapeErr *RowShapeError
		require.True(t, errors.As(err, &shapeErr), input)
		assert.Equal(t, expected, *shapeErr, input)
	}
}

func TestUnmarshalBadQuoting(t *testing.T) {
	_, err := Unmarshal(strings.NewReader("a,\"b,c,d,e\n"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrRowShape))
}
