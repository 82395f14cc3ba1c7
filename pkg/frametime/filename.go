package frametime

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimestampLayout is used for exported file names. It avoids ':' so
// the names stay valid on every filesystem.
const DefaultTimestampLayout = "2006-01-02T15-04-05"

// maxCollisions bounds the numeric suffixes tried when a name is taken.
const maxCollisions = 1000

// compressionExts are outer extensions kept together with the inner one.
var compressionExts = map[string]bool{
	".gz":  true,
	".bz2": true,
	".xz":  true,
	".zst": true,
}

// SplitExt splits path into base and extension, keeping compound archive
// extensions such as ".csv.gz" together.
func SplitExt(path string) (base, ext string) {
	ext = filepath.Ext(path)
	base = strings.TrimSuffix(path, ext)
	if compressionExts[strings.ToLower(ext)] {
		if inner := filepath.Ext(base); inner != "" {
			ext = inner + ext
			base = strings.TrimSuffix(base, inner)
		}
	}
	return base, ext
}

// TimestampedName returns <base>_<timestamp><ext> for path.
func TimestampedName(path string, ts time.Time, layout string) string {
	if layout == "" {
		layout = DefaultTimestampLayout
	}
	base, ext := SplitExt(path)
	return base + "_" + ts.Format(layout) + ext
}

// createTimestamped creates a new file named after path and ts. When the
// name exists already, _1, _2, ... are appended to the timestamp.
func createTimestamped(path string, ts time.Time, layout string) (*os.File, string, error) {
	name := TimestampedName(path, ts, layout)
	base, ext := SplitExt(name)
	for i := 0; i < maxCollisions; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", &IOError{Op: "create", Path: candidate, Err: err}
		}
	}
	return nil, "", &IOError{Op: "create", Path: name, Err: os.ErrExist}
}
