package file

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadList(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "comments and blank lines",
			body: "# q3 resubmissions\n/data/sblar/bank-a.csv\n   # indented\n\nhttps://files.example.gov/sblar/bank-b.csv\n   /data/sblar/bank-c.parquet  \n",
			want: []string{
				"/data/sblar/bank-a.csv",
				"https://files.example.gov/sblar/bank-b.csv",
				"/data/sblar/bank-c.parquet",
			},
		},
		{name: "bom and crlf", body: "\ufeffa.csv\r\nb.csv\r\n", want: []string{"a.csv", "b.csv"}},
		{
			name: "trailing comments and repeats",
			body: "bank-a.csv  # resubmitted 2024-10-02\nbank-b.csv\nbank-a.csv\nhttps://x.test/a#frag\n",
			want: []string{"bank-a.csv", "bank-b.csv", "https://x.test/a#frag"},
		},
		{name: "empty", body: ""},
		{name: "only comments", body: "# nothing to do\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadList(writeSubmission(t, "list.txt", tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadListMissingFile(t *testing.T) {
	_, err := ReadList("does-not-exist.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
