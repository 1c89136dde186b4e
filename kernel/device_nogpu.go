//go:build nogpu

package kernel

// OpenDevice always fails in builds without GPU support.
func OpenDevice() (*Device, error) {
	return nil, ErrNoDevice
}
