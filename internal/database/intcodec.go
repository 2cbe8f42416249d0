package database

import (
	"errors"
	"strconv"
)

var errNotAnInteger = errors.New("value is not an integer or out of range")

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errNotAnInteger
	}
	return n, nil
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
