//go:build !linux

package ioback

func newURing(int) (ring, error) {
	return nil, errRingUnsupported
}
