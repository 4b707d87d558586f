package formatting

import "strconv"

// FormatAmount renders f with two decimals and comma thousands separators,
// e.g. -1234567.891 as "-1,234,567.89".
func FormatAmount(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)

	sign := ""
	if s[0] == '-' {
		sign, s = "-", s[1:]
	}
	if sign == "-" && s == "0.00" {
		sign = ""
	}

	whole, frac := s[:len(s)-3], s[len(s)-3:]
	b := make([]byte, 0, len(whole)+len(whole)/3)
	for i := range len(whole) {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b = append(b, ',')
		}
		b = append(b, whole[i])
	}
	return sign + string(b) + frac
}
