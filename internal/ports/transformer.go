package ports

import "io"

// LineTransformer rewrites a line-oriented log from r into w and reports
// how many lines it changed.
type LineTransformer interface {
	Transform(r io.Reader, w io.Writer) (int, error)
	Name() string
}
