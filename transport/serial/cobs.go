package serial

// cobsMaxEncodedLen returns the worst-case COBS encoding length of n bytes.
func cobsMaxEncodedLen(n int) int {
	return n + n/254 + 1
}

// cobsEncode writes the COBS encoding of src into dst and returns its
// length. dst must hold cobsMaxEncodedLen(len(src)) bytes. The output
// contains no zero bytes.
func cobsEncode(dst, src []byte) int {
	codeAt := 0
	out := 1
	code := byte(1)

	for _, b := range src {
		if b != 0 {
			dst[out] = b
			out++
			code++
		}

		if b == 0 || code == 0xFF {
			dst[codeAt] = code
			codeAt = out
			out++
			code = 1
		}
	}

	dst[codeAt] = code

	return out
}

// cobsDecode decodes src in place and returns the decoded length. It
// returns false for an invalid encoding.
func cobsDecode(buf []byte) (int, bool) {
	in, out := 0, 0

	for in < len(buf) {
		code := buf[in]
		if code == 0 {
			return 0, false
		}

		in++
		end := in + int(code) - 1
		if end > len(buf) {
			return 0, false
		}

		for ; in < end; in++ {
			if buf[in] == 0 {
				return 0, false
			}

			buf[out] = buf[in]
			out++
		}

		if code != 0xFF && in < len(buf) {
			buf[out] = 0
			out++
		}
	}

	return out, true
}
