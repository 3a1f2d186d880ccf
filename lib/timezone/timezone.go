package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Moscow")
	if err != nil {
		panic(err)
	}
}

// Codeforces renders "format-time" cells in Moscow time when the page locale
// is forced to "en", so scraped wall-clock timestamps have to be interpreted
// in this location before converting to UTC.
func Now() time.Time {
	return time.Now().In(Location)
}
