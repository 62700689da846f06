package service

import "time"

// SetToday pins the start of the default availability range.
func SetToday(svc Room, today func() time.Time) {
	svc.(*serviceImpl).today = today
}
