package jsonarray

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcf2json/pkg/contract"
)

func encode(t *testing.T, opts *Options, recs []*contract.Record) string {
	t.Helper()
	e, err := New(opts)
	require.NoError(t, err)
	r, err := e.Encode(context.Background(), recs)
	require.NoError(t, err)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func TestEncodeEmpty(t *testing.T) {
	assert.Equal(t, "[]\n", encode(t, nil, nil))
}

func TestEncodeSortedKeysAndIndent(t *testing.T) {
	r := contract.NewRecord()
	r.Add("phone_cell", "555-1234")
	r.Add("name", "Doe;John;;;")
	r.Add("phone_cell", "555-0000")

	want := `[
    {
        "name": [
            "Doe;John;;;"
        ],
        "phone_cell": [
            "555-1234",
            "555-0000"
        ]
    }
]
`
	assert.Equal(t, want, encode(t, nil, []*contract.Record{r}))
}

func TestEncodeEmptyRecord(t *testing.T) {
	assert.Equal(t, "[\n  {}\n]\n", encode(t, &Options{Indent: 2}, []*contract.Record{contract.NewRecord()}))
}

func TestEncodeCompact(t *testing.T) {
	r := contract.NewRecord()
	r.Add("phone_cell", "1")
	r.Add("phone_cell", "2")
	assert.Equal(t, "[{\"phone_cell\":[\"1\",\"2\"]}]\n", encode(t, &Options{Indent: -1}, []*contract.Record{r}))
}

func TestEncodeNoHTMLEscape(t *testing.T) {
	r := contract.NewRecord()
	r.Add("url", "https://example.com/?a=1&b=<2>")
	r.Add("full_name", "张三")
	out := encode(t, &Options{Indent: 1}, []*contract.Record{r})
	assert.Contains(t, out, `"https://example.com/?a=1&b=<2>"`)
	assert.Contains(t, out, `"张三"`)
}

func TestEncodeCtxCancel(t *testing.T) {
	e, err := New(nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Encode(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
