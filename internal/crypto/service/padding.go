package service

import "bytes"

// pkcs7Pad returns a new slice holding data followed by 1..blockSize bytes of
// PKCS#7 padding.
func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

// paddingMatches reports whether the bytes after length form the PKCS#7 padding
// that encrypting length bytes would have produced.
func paddingMatches(decrypted []byte, length int) bool {
	n := len(decrypted) - length
	if n <= 0 || n > 255 {
		return false
	}
	for _, b := range decrypted[length:] {
		if int(b) != n {
			return false
		}
	}
	return true
}
