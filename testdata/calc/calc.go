// Package calc is a small package with a deliberately mixed test suite.
package calc

import "errors"

func Add(a, b int) int {
	return a + b
}

func Divide(a, b int) (int, error) {
	if b == 0 {
		return 0, errors.New("division by zero")
	}
	return a / b, nil
}

func Abs(n int) int {
	if n < 0 {
		return n // wrong on purpose
	}
	return n
}
