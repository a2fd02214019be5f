// Package bind decodes structured request bodies and reports failures with
// their line and column, ready for diagnostic.Translator.
package bind

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"

	"github.com/aretw0/restx/pkg/domain"
)

// JSON decodes the request body into v.
// Malformed input is reported as a *domain.ParseError.
func JSON(r *http.Request, v any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	return Decode(data, v)
}

// Decode unmarshals data into v, converting decoder failures to *domain.ParseError.
func Decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return parseError(data, err)
	}
	return nil
}

func parseError(data []byte, err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &syntaxErr):
		line, col := Position(data, syntaxErr.Offset)
		return &domain.ParseError{Kind: kindOf(syntaxErr), Line: line, Column: col + 1, Message: syntaxErr.Error(), Err: err}
	case errors.As(err, &typeErr):
		line, col := Position(data, typeErr.Offset)
		return &domain.ParseError{Kind: kindOf(typeErr), Line: line, Column: col + 1, Message: typeErr.Error(), Err: err}
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		line, col := Position(data, int64(len(data)))
		return &domain.ParseError{Kind: "UnexpectedEndOfInput", Line: line, Column: col + 1, Message: "unexpected end of input", Err: err}
	default:
		return err
	}
}

// Position converts a byte offset into a 1-based line and column.
// The column designates the last byte consumed before offset. Parse errors
// report the column after it, where the caret of a diagnostic lands under
// the offending byte.
func Position(data []byte, offset int64) (line, column int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	if offset < 0 {
		offset = 0
	}
	prefix := data[:offset]
	line = 1 + bytes.Count(prefix, []byte("\n"))
	column = len(prefix) - (bytes.LastIndexByte(prefix, '\n') + 1)
	if column < 1 {
		column = 1
	}
	return line, column
}

func kindOf(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
