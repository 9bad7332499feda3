package utils

import (
	"fmt"
	rndm "math/rand"
	"strconv"
	"time"
)

// --- Booking ID Generator ---

const BookingIDLength = 10

// GenerateBookingID returns "BK-" + a random number in [1000, 9999] + the last
// four digits of the current unix millisecond clock, cut to BookingIDLength.
// Uniqueness is left to the storage layer.
func GenerateBookingID() string {
	return bookingIDAt(time.Now(), 1000+rndm.Intn(9000))
}

func bookingIDAt(t time.Time, random int) string {
	ms := strconv.FormatInt(t.UnixMilli(), 10)
	if len(ms) > 4 {
		ms = ms[len(ms)-4:]
	}
	id := fmt.Sprintf("BK-%04d%s", random, ms)
	if len(id) > BookingIDLength {
		id = id[:BookingIDLength]
	}
	for len(id) < BookingIDLength {
		id += "0"
	}
	return id
}
