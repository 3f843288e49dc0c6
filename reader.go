package etslog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Options controls how a log file is read.
type Options struct {
	// Encoding is the IANA name of the text encoding of the log. Empty means
	// UTF-8. A byte order mark, if present, always wins.
	Encoding string
	// StrictPassFail, see DecodeOptions.
	StrictPassFail bool
	// StrictQuotes rejects a double quote inside an unquoted field. By
	// default such a quote is kept as a literal character.
	StrictQuotes bool
	// Logger receives diagnostics for unknown tags and warning rows. Nil
	// means slog.Default().
	Logger *slog.Logger
}

// Reader yields the decoded records of a log one at a time.
type Reader struct {
	path   string
	cr     *csv.Reader
	opts   DecodeOptions
	logger *slog.Logger
}

// NewReader returns a Reader for the log in r. The path is only used to
// identify the log in errors and diagnostics.
func NewReader(r io.Reader, path string, opts Options) (*Reader, error) {
	enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	r = transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder()))

	cr := csv.NewReader(r)
	cr.Comma = ','
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = !opts.StrictQuotes

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reader{
		path:   path,
		cr:     cr,
		opts:   DecodeOptions{StrictPassFail: opts.StrictPassFail},
		logger: logger,
	}, nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("text encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("text encoding %q: not supported", name)
	}
	return enc, nil
}

// Read returns the next record, or io.EOF after the last one. All other
// errors are *LineError.
func (r *Reader) Read() (Record, error) {
	fields, err := r.cr.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, &LineError{Path: r.path, Line: perr.StartLine - 1, Err: &MalformedRowError{Err: perr.Err}}
		}
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}
	line, _ := r.cr.FieldPos(0)
	line--

	tag, err := Classify(fields)
	if err != nil {
		return nil, &LineError{Path: r.path, Line: line, Err: err}
	}

	switch tag {
	case TagUnknown:
		r.logger.Warn("Unknown row tag", "path", r.path, "line", line, "tag", strings.TrimSpace(fields[0]))
	case TagWarning:
		r.logger.Info("Fixture warning", "path", r.path, "line", line, "fields", fields[1:])
	}

	rec, err := Decode(tag, fields, r.opts)
	if err != nil {
		return nil, &LineError{Path: r.path, Line: line, Err: err}
	}
	return rec, nil
}
