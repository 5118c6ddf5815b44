//go:build !linux

package rt

func setAffinity(cpu int) error {
	return nil
}
