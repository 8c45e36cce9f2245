//go:build !linux

package driver

import "errors"

func setThreadNice(nice int) error {
	if nice == 0 {
		return nil
	}
	return errors.New("driver: thread niceness is only supported on linux")
}
