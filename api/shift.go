package api

import (
	"path"
	"strings"
)

// ShiftPath splits off the first component of p, which is cleaned of
// ./ and ../ elements. head never contains a slash and tail always
// starts with one.
func ShiftPath(p string) (head, tail string) {
	p = path.Clean("/" + p)
	i := strings.Index(p[1:], "/") + 1
	if i <= 0 {
		return p[1:], "/"
	}
	return p[1:i], p[i:]
}
