package api

import "fmt"

func pathf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

func intPtr(n int) *int {
	return &n
}
