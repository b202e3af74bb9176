package utils

import (
	"crypto/rand"
)

// alphabet has 64 symbols so a random byte masked with 63 maps onto it uniformly
var alphabet = []byte("_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

const defaultLength = 8

// NewNanoID returns a short random id used to name websocket clients
func NewNanoID() string {
	return NewNanoIDN(defaultLength)
}

// NewNanoIDN returns a random id of n symbols
func NewNanoIDN(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	rand.Read(b)
	for i := range b {
		b[i] = alphabet[b[i]&63]
	}
	return string(b)
}
