package domain

import "time"

// Now returns the current time as float seconds since the Unix epoch.
// All broker timestamps use this representation on the wire and in the store.
func Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
