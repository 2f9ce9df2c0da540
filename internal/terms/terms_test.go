package terms

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_PreservesOrderAndDuplicates(t *testing.T) {
	input := "id,word\n1,ローソン\n2,ファミリーマート\n3,ローソン\n"

	words, err := Read(strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, []string{"ローソン", "ファミリーマート", "ローソン"}, words)
}

func TestRead_WordColumnInAnyPosition(t *testing.T) {
	words, err := Read(strings.NewReader("word,kana\nセブン-イレブン,せぶん\n"))

	require.NoError(t, err)
	assert.Equal(t, []string{"セブン-イレブン"}, words)
}

func TestRead_MissingWord(t *testing.T) {
	_, err := Read(strings.NewReader("id,word\n1,\n"))

	var inputErr *InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, 1, inputErr.Record)
	assert.True(t, errors.Is(err, ErrMissingWord))
}

func TestRead_HeaderWithoutWord(t *testing.T) {
	for name, input := range map[string]string{
		"header only": "id,term\n",
		"with rows":   "id,term\n1,ローソン\n",
	} {
		t.Run(name, func(t *testing.T) {
			words, err := Read(strings.NewReader(input))

			var inputErr *InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Zero(t, inputErr.Record)
			assert.True(t, errors.Is(err, ErrMissingWordColumn))
			assert.Nil(t, words)
		})
	}
}

func TestRead_HeaderOnly(t *testing.T) {
	words, err := Read(strings.NewReader("id,word\n"))

	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestRead_EmptyWordInLaterRecord(t *testing.T) {
	_, err := Read(strings.NewReader("id,word\n1,ローソン\n2,\n"))

	var inputErr *InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, 2, inputErr.Record)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search_words.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,word\n1,ローソン\n2,ファミリーマート\n"), 0o644))

	words, err := ReadFile(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"ローソン", "ファミリーマート"}, words)
}

func TestReadFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.csv")

	_, err := ReadFile(path)

	var inputErr *InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, path, inputErr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
