package diagnostic

import (
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/aretw0/restx/internal/logging"
	"github.com/aretw0/restx/internal/tpl"
	"github.com/aretw0/restx/pkg/domain"
)

//go:embed templates/*.tpl
var templates embed.FS

var notFoundTpl = tpl.MustLoad(templates, "templates/notfound")

const contentType = "text/plain; charset=utf-8"

// Translator turns recoverable request failures into 400 responses.
type Translator struct {
	logger *slog.Logger
}

// NewTranslator creates a translator. A nil logger discards output.
func NewTranslator(logger *slog.Logger) *Translator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Translator{logger: logger}
}

// Translate writes the response for err and reports whether it did.
//
// content is the request body. Parse failures echo it with a position marker
// when it implements io.Seeker; otherwise only the failure message is written.
// Failures of any other category are left to the caller.
func (t *Translator) Translate(w http.ResponseWriter, r *http.Request, content io.Reader, err error) bool {
	var (
		parseErr *domain.ParseError
		argErr   *domain.ArgumentError
	)
	switch {
	case errors.As(err, &parseErr):
		t.logger.Debug("request raised parse error", "request", describe(r), "kind", parseErr.Kind, "error", err)
		body := t.renderParseError(r, content, parseErr)
		write(w, http.StatusBadRequest, body)
		return true
	case errors.As(err, &argErr):
		t.logger.Debug("request raised invalid argument", "request", describe(r), "error", err)
		write(w, http.StatusBadRequest, argErr.Message)
		return true
	default:
		return false
	}
}

func (t *Translator) renderParseError(r *http.Request, content io.Reader, pe *domain.ParseError) string {
	seeker, ok := content.(io.Seeker)
	if !ok {
		return pe.Error()
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		t.logger.Warn("io error raised when trying to provide original input to caller", "error", err)
		return pe.Error()
	}

	var out bytes.Buffer
	if err := WriteParseError(&out, content, pe); err != nil {
		t.logger.Warn("io error raised when trying to provide original input to caller", "error", err)
		return pe.Error()
	}

	if t.logger.Enabled(r.Context(), slog.LevelDebug) {
		if _, err := seeker.Seek(0, io.SeekStart); err == nil {
			if data, err := io.ReadAll(content); err == nil {
				t.logger.Debug("parse error input", "request", describe(r), "message", pe.Message, "content", string(data))
			}
		}
	}
	return out.String()
}

// WriteParseError echoes content line by line and marks the failure position
// of pe under the failing line.
func WriteParseError(out io.Writer, content io.Reader, pe *domain.ParseError) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s. Please verify your input:\n", KindLabel(pe.Kind))
	b.WriteString("<-- JSON -->\n")

	br := bufio.NewReader(content)
	for lineNr := 1; ; lineNr++ {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		if line == "" && err == io.EOF {
			break
		}
		line = strings.TrimRight(line, "\r\n")
		b.WriteString(line)
		b.WriteByte('\n')

		if lineNr == pe.Line {
			b.WriteString(strings.Repeat(" ", max(0, pe.Column-2)))
			b.WriteString("^\n")
			b.WriteString(">> ")
			b.WriteString(strings.Repeat(" ", max(0, pe.Column-len(pe.Message)/2-3)))
			b.WriteString(pe.Message)
			b.WriteString(" <<\n\n")
		}
		if err == io.EOF {
			break
		}
	}
	b.WriteString("</- JSON -->\n")

	_, err := io.WriteString(out, b.String())
	return err
}

// WriteNotFound writes the 404 diagnostic listing the route table.
func WriteNotFound(w http.ResponseWriter, method, path, routes string) {
	write(w, http.StatusNotFound, notFoundTpl.Bind(map[string]string{
		"method": method,
		"path":   path,
		"routes": routes,
	}))
}

// KindLabel converts an UpperCamel failure kind to lower_underscore
// ("UnmarshalTypeError" becomes "unmarshal_type_error").
func KindLabel(kind string) string {
	runes := []rune(kind)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func write(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func describe(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.Method + " " + r.URL.RequestURI()
}
