package storage

import "errors"

var errNegative = errors.New("negative value")

func orNegative(err error) error {
	if err != nil {
		return err
	}
	return errNegative
}
