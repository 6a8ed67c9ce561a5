//go:build !linux && !darwin

package paste

func Init() error { return ErrUnsupported }

func Send() error { return ErrUnsupported }
