package models

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

// ErrDuplicateIdentity is returned by inserts that hit an existing identity.
var ErrDuplicateIdentity = errors.New("identity already exists")

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func insertErr(err error) error {
	if err == nil {
		return nil
	}
	if isDuplicateKeyErr(err) {
		return errors.Join(ErrDuplicateIdentity, err)
	}
	return err
}
