package notation

import "errors"

var ErrDomain = errors.New("argument outside function domain")
