package xmfile

import (
	"bytes"
	"strings"
)

func convertCstring(data []byte) string {
	i := bytes.IndexByte(data, 0)
	if i == -1 {
		return strings.TrimRight(string(data), " ")
	}
	return strings.TrimRight(string(data[:i]), " ")
}

func alignDown(v, align int) int {
	return v - v%align
}

func alignUp(v, align int) int {
	if rem := v % align; rem != 0 {
		return v + align - rem
	}
	return v
}
