package csv

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sblar/internal/config"
	"sblar/internal/frame"
)

type memSource struct {
	data  string
	opens int
}

func (m *memSource) Open(context.Context) (io.ReadCloser, error) {
	m.opens++
	return io.NopCloser(strings.NewReader(m.data)), nil
}

func (m *memSource) Location() string { return "mem.csv" }

// readAll drains one Chunks pass.
func readAll(t *testing.T, r *Reader) ([]*frame.Chunk, error) {
	t.Helper()
	out := make(chan *frame.Chunk, 16)
	err := r.Chunks(context.Background(), out)
	close(out)
	var cs []*frame.Chunk
	for c := range out {
		cs = append(cs, c)
	}
	return cs, err
}

func TestChunksSplitsRows(t *testing.T) {
	t.Parallel()

	src := &memSource{data: "uid,amount\nA1,1\nA2,2\nA3,\nA4,4\nA5,5\n"}
	r := New(src, Options{ChunkRows: 2}, nil)

	cs, err := readAll(t, r)
	require.NoError(t, err)
	require.Len(t, cs, 3)

	assert.Equal(t, []int{0, 2, 4}, []int{cs[0].Offset, cs[1].Offset, cs[2].Offset})
	assert.Equal(t, []int{2, 2, 1}, []int{cs[0].Len(), cs[1].Len(), cs[2].Len()})
	assert.Equal(t, []string{"uid", "amount"}, cs[0].Names())

	amt, ok := cs[1].Column("amount")
	require.True(t, ok)
	assert.Equal(t, []string{"", "4"}, amt)
	assert.Equal(t, 5, cs[2].RecordNo(0))
}

func TestChunksRestartsEachPass(t *testing.T) {
	t.Parallel()

	src := &memSource{data: "uid\nA1\nA2\nA3\n"}
	r := New(src, Options{ChunkRows: 10}, nil)

	for pass := 0; pass < 2; pass++ {
		cs, err := readAll(t, r)
		require.NoError(t, err)
		require.Len(t, cs, 1)
		uids, _ := cs[0].Column("uid")
		assert.Equal(t, []string{"A1", "A2", "A3"}, uids)
	}
	assert.Equal(t, 2, src.opens)
}

func TestChunksHeaderOnly(t *testing.T) {
	t.Parallel()

	cs, err := readAll(t, New(&memSource{data: "uid,amount\n"}, Options{}, nil))
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestChunksBOMAndHeaderSpace(t *testing.T) {
	t.Parallel()

	src := &memSource{data: "\ufeff uid , amount\nA1, 10 \n"}
	cs, err := readAll(t, New(src, Options{}, nil))
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, []string{"uid", "amount"}, cs[0].Names())
	// values are raw unless trim_space is set
	assert.Equal(t, " 10 ", cs[0].Value("amount", 0))

	cs, err = readAll(t, New(src, Options{TrimSpace: true}, nil))
	require.NoError(t, err)
	assert.Equal(t, "10", cs[0].Value("amount", 0))
}

func TestChunksUTF16(t *testing.T) {
	t.Parallel()

	// "uid\nA1\n" as UTF-16LE with BOM
	data := "\xff\xfeu\x00i\x00d\x00\n\x00A\x001\x00\n\x00"
	cs, err := readAll(t, New(&memSource{data: data}, Options{}, nil))
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "A1", cs[0].Value("uid", 0))
}

func TestChunksOptions(t *testing.T) {
	t.Parallel()

	opt := OptionsFrom(config.Options{"comma": ";", "lazy_quotes": true}, 7)
	assert.Equal(t, ';', opt.Comma)
	assert.True(t, opt.LazyQuotes)
	assert.Equal(t, 7, opt.ChunkRows)

	src := &memSource{data: "uid;name\nA1;say \"hi\" there\n"}
	cs, err := readAll(t, New(src, opt, nil))
	require.NoError(t, err)
	assert.Equal(t, `say "hi" there`, cs[0].Value("name", 0))

	def := OptionsFrom(config.Options{}, 0)
	assert.Equal(t, ',', def.Comma)
	assert.False(t, def.TrimSpace)
}

func TestChunksInputErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty file", "", frame.ErrMalformed},
		{"ragged row", "uid,amount\nA1,1\nA2\n", frame.ErrMalformed},
		{"bad quote", "uid,amount\nA1,\"1\n", frame.ErrMalformed},
		{"duplicate header", "uid,uid\nA1,A2\n", frame.ErrMalformed},
		{"no uid", "id,amount\nA1,1\n", frame.ErrMissingColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := readAll(t, New(&memSource{data: tt.data}, Options{}, nil))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "err=%v", err)
		})
	}
}

func TestChunksMissingColumnsListed(t *testing.T) {
	t.Parallel()

	_, err := readAll(t, New(&memSource{data: "a\n1\n"}, Options{Required: []string{"uid", "app_date"}}, nil))
	var mc *frame.MissingColumnError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, []string{"uid", "app_date"}, mc.Columns)
}

func TestChunksCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// unbuffered and never drained
	out := make(chan *frame.Chunk)
	err := New(&memSource{data: "uid\nA1\n"}, Options{}, nil).Chunks(ctx, out)
	assert.ErrorIs(t, err, context.Canceled)
}
