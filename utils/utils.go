package utils

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

var caneleSourceDir string

func init() {
	_, file, _, _ := runtime.Caller(0)
	// compatible solution to get canele source directory with various operating systems
	caneleSourceDir = sourceDir(file)
}

func sourceDir(file string) string {
	dir := filepath.Dir(filepath.Dir(file))

	s := filepath.Dir(dir)
	if filepath.Base(s) != "canele-orm" {
		s = dir
	}
	return filepath.ToSlash(s) + "/"
}

// FileWithLineNum return the file name and line number of the caller
// outside of the canele source tree.
func FileWithLineNum() string {
	// the first few callers are canele internals, so start from 2
	for i := 2; i < 15; i++ {
		_, file, line, ok := runtime.Caller(i)
		if ok && (!strings.HasPrefix(file, caneleSourceDir) || strings.HasSuffix(file, "_test.go")) {
			return file + ":" + strconv.FormatInt(int64(line), 10)
		}
	}

	return ""
}
