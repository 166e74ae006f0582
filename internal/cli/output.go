// Package cli holds what the midicsv and csvmidi executables share: where
// converted files are written and how input files are found.
package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Output decides where the converted files go.
type Output struct {
	Stdout bool   // write to Writer instead of files
	Path   string // output directory or file name; "" writes next to the input
	Safe   bool   // never overwrite an existing, different file
	Writer io.Writer
}

// Write writes contents to the file named after filename with its extension
// replaced by extension. Files whose contents would not change are left
// alone.
func (o *Output) Write(filename string, extension string, contents []byte) error {
	if o.Stdout || filename == "-" {
		w := o.Writer
		if w == nil {
			w = os.Stdout
		}
		_, err := w.Write(contents)
		return err
	}
	dir, name := filepath.Split(filename)
	if o.Path != "" {
		// an existing directory, even without a trailing slash
		if info, err := os.Stat(o.Path); err == nil && info.IsDir() {
			dir = o.Path
		} else {
			outdir, outname := filepath.Split(o.Path)
			if outdir != "" {
				dir = outdir
			}
			if outname != "" {
				name = outname
			}
		}
	}
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
		}
	}
	name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
	f := filepath.Join(dir, name)
	original, err := os.ReadFile(f)
	if err == nil {
		if bytes.Equal(original, contents) {
			return nil // no need to update
		}
		if o.Safe {
			return fmt.Errorf("file %v would be overwritten", f)
		}
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("could not create output directory %v: %v", dir, err)
	}
	if err := os.WriteFile(f, contents, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %v", f, err)
	}
	return nil
}

// ReadInput reads the named file, or standard input for "-".
func ReadInput(filename string) ([]byte, error) {
	if filename == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(filename)
}

// Expand replaces every directory in params by the files in it that have
// one of the given extensions.
func Expand(params []string, extensions ...string) ([]string, error) {
	var ret []string
	for _, param := range params {
		info, err := os.Stat(param)
		if err != nil || !info.IsDir() {
			ret = append(ret, param)
			continue
		}
		for _, ext := range extensions {
			files, err := filepath.Glob(filepath.Join(param, "*"+ext))
			if err != nil {
				return nil, fmt.Errorf("could not glob the path %v for %v files: %v", param, ext, err)
			}
			ret = append(ret, files...)
		}
	}
	return ret, nil
}
