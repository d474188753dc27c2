package storage

import (
	"errors"
	"strconv"
)

// ErrKeepAlive is returned when a keep-alive frame is offered for archiving.
var ErrKeepAlive = errors.New("keep-alive frames are not archived")

// ErrNilRecord is returned when a nil record is offered for archiving.
var ErrNilRecord = errors.New("cannot store nil record")

// ErrNotFound is returned when a record doesn't exist in the store.
type ErrNotFound struct {
	ID int64
}

func (e ErrNotFound) Error() string {
	if e.ID == 0 {
		return "record not found"
	}

	return "record not found: " + strconv.FormatInt(e.ID, 10)
}

// Validate checks that rec can be archived.
func Validate(rec *Record) error {
	if rec == nil {
		return ErrNilRecord
	}
	if rec.Frame.IsKeepAlive() {
		return ErrKeepAlive
	}
	return nil
}
