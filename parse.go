package etslog

import (
	"fmt"
	"io"
	"os"
)

// Parse reads a complete log. The first bad record aborts the parse.
func Parse(r io.Reader, path string, opts Options) (*Results, error) {
	lr, err := NewReader(r, path, opts)
	if err != nil {
		return nil, err
	}

	asm := NewAssembler(path)
	for {
		rec, err := lr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		asm.Add(rec)
	}
	return asm.Results(), nil
}

// ParseFile is Parse on the named file.
func ParseFile(path string, opts Options) (*Results, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer fd.Close()
	return Parse(fd, path, opts)
}
