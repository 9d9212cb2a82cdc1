//go:build !linux && !darwin && !freebsd && !windows

package speech

func openLibrary() (Library, error) {
	return nil, errNoLibrary
}
