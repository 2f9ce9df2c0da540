// Package terms reads the list of search terms a harvest run is driven by.
package terms

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gocarina/gocsv"
)

// Record is one row of the search-term file. Columns other than word are ignored.
type Record struct {
	Word string `csv:"word" validate:"required"`
}

// InputError reports a missing or malformed search-term file.
type InputError struct {
	Path   string
	Record int
	Err    error
}

func (e *InputError) Error() string {
	if e.Record > 0 {
		return fmt.Sprintf("search terms %s: record %d: %v", e.Path, e.Record, e.Err)
	}
	return fmt.Sprintf("search terms %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

var (
	// ErrMissingWord is returned for a record whose word field is empty.
	ErrMissingWord = errors.New("missing word field")
	// ErrMissingWordColumn is returned when the header does not name a word column.
	ErrMissingWordColumn = errors.New("header has no word column")
)

var validate = validator.New()

// ReadFile reads search terms from the CSV file at path.
func ReadFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	defer file.Close()

	words, err := Read(file)
	if err != nil {
		var inputErr *InputError
		if errors.As(err, &inputErr) {
			inputErr.Path = path
			return nil, inputErr
		}
		return nil, &InputError{Path: path, Err: err}
	}
	return words, nil
}

// Read decodes a CSV stream whose header names a word column. Term order is
// preserved and duplicates are kept.
func Read(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &InputError{Path: "<stream>", Err: err}
	}
	if err := checkHeader(data); err != nil {
		return nil, &InputError{Path: "<stream>", Err: err}
	}

	var records []*Record
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, &InputError{Path: "<stream>", Err: err}
	}

	words := make([]string, 0, len(records))
	for i, rec := range records {
		if err := validate.Struct(rec); err != nil {
			return nil, &InputError{Path: "<stream>", Record: i + 1, Err: ErrMissingWord}
		}
		words = append(words, rec.Word)
	}
	return words, nil
}

// checkHeader fails unless the first row names the word column. An empty
// stream is left to the decoder, which rejects it.
func checkHeader(data []byte) error {
	header, err := gocsv.DefaultCSVReader(bytes.NewReader(data)).Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, column := range header {
		if column == "word" {
			return nil
		}
	}
	return ErrMissingWordColumn
}
