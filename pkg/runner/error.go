package runner

import "errors"

var ErrReadInput = errors.New("read input")
