package tracker

import "errors"

// ErrRecordFailed indicates a version row could not be written.
var ErrRecordFailed = errors.New("recording migration")
