package assembler

// Truncate returns at most n runes of s. It never splits a multi-byte
// character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Ellipsize is Truncate with "..." appended when s was cut.
func Ellipsize(s string, n int) string {
	t := Truncate(s, n)
	if len(t) < len(s) {
		return t + "..."
	}
	return t
}
