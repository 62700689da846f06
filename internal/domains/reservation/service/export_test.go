package service

import "time"

// SetToday pins the date used for the past check-in rule.
func SetToday(svc Reservation, today func() time.Time) {
	svc.(*serviceImpl).today = today
}
