package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

const flashKeySize = 32

func newFlashKey() []byte {
	key := make([]byte, flashKeySize)
	if _, err := rand.Read(key); err != nil {
		panic("handlers: flash key: " + err.Error())
	}
	return key
}

// signFlash appends an HMAC-SHA256 tag over scope and payload. The scope
// (tenant slug) keeps a cookie minted for one tenant from verifying on another.
func signFlash(key []byte, scope, payload string) string {
	return payload + "." + flashMAC(key, scope, payload)
}

// verifyFlash returns the payload of a value produced by signFlash, or false
// when the value was altered or signed under another key or scope.
func verifyFlash(key []byte, scope, value string) (string, bool) {
	i := strings.LastIndexByte(value, '.')
	if i < 0 {
		return "", false
	}
	payload, tag := value[:i], value[i+1:]
	want := flashMAC(key, scope, payload)
	if !hmac.Equal([]byte(tag), []byte(want)) {
		return "", false
	}
	return payload, true
}

func flashMAC(key []byte, scope, payload string) string {
	m := hmac.New(sha256.New, key)
	m.Write([]byte(scope))
	m.Write([]byte{0})
	m.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}
