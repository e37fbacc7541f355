package command

// globMatch reports whether key matches a glob pattern with the KEYS syntax:
// '*' any run of bytes, '?' one byte, '[abc]', '[^a]' and '[a-z]' classes,
// and '\' to escape the next byte. Unlike path.Match '/' is an ordinary byte
func globMatch(pattern, key string) bool {
	p, k := 0, 0
	// position to resume from after the last '*'
	starP, starK := -1, 0

	for k < len(key) {
		if p < len(pattern) {
			switch c := pattern[p]; c {
			case '*':
				starP, starK = p, k
				p++
				continue
			case '?':
				p++
				k++
				continue
			case '[':
				if next, ok := matchClass(pattern, p, key[k]); ok {
					p = next
					k++
					continue
				}
			case '\\':
				if p+1 < len(pattern) && pattern[p+1] == key[k] {
					p += 2
					k++
					continue
				}
			default:
				if c == key[k] {
					p++
					k++
					continue
				}
			}
		}

		if starP < 0 {
			return false
		}
		// let the last star absorb one more byte
		starK++
		p, k = starP+1, starK
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// matchClass matches b against the class starting at pattern[start] == '['.
// It returns the index after the class and whether b is in it
func matchClass(pattern string, start int, b byte) (int, bool) {
	i := start + 1
	negate := false
	if i < len(pattern) && pattern[i] == '^' {
		negate = true
		i++
	}

	matched := false
	for i < len(pattern) && pattern[i] != ']' {
		lo := pattern[i]
		if lo == '\\' && i+1 < len(pattern) {
			i++
			lo = pattern[i]
		}

		if i+2 < len(pattern) && pattern[i+1] == '-' && pattern[i+2] != ']' {
			hi := pattern[i+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if b >= lo && b <= hi {
				matched = true
			}
			i += 3
			continue
		}

		if lo == b {
			matched = true
		}
		i++
	}

	if i >= len(pattern) {
		// an unterminated class matches nothing
		return i, false
	}
	return i + 1, matched != negate
}
