// internal/export/writers.go
package export

import (
	"io"
	"io/fs"
	"os"
)

// DelayFileWriter defers opening its file until the first write, so a failed
// export never leaves an empty artifact behind.
type DelayFileWriter struct {
	file  io.WriteCloser
	path  string
	flags int
	perms fs.FileMode
}

// NewDelayFileWriter mirrors the arguments of os.OpenFile.
func NewDelayFileWriter(path string, flags int, perms fs.FileMode) *DelayFileWriter {
	return &DelayFileWriter{path: path, flags: flags, perms: perms}
}

func (f *DelayFileWriter) Write(p []byte) (int, error) {
	if f.file == nil {
		var err error
		f.file, err = os.OpenFile(f.path, f.flags, f.perms)
		if err != nil {
			return 0, err
		}
	}
	return f.file.Write(p)
}

func (f *DelayFileWriter) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}
