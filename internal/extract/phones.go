package extract

import "regexp"

var phoneRe = regexp.MustCompile(`[0-9]{9,}`)

// Phones scans text for digit runs of length >= 9 and returns them in
// encounter order. The first two are treated as the client's primary and
// secondary contact numbers.
func Phones(text string) []string {
	return phoneRe.FindAllString(text, -1)
}
