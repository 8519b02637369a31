//go:build !ypspur

package ypspur

// NewLibDriver reports ErrUnavailable unless built with -tags ypspur.
func NewLibDriver() (Driver, error) {
	return nil, ErrUnavailable
}
