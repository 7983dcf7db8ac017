package utils

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const secretAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateSecret returns a random alphanumeric string of the given length.
func GenerateSecret(length int) (string, error) {
	return gonanoid.Generate(secretAlphabet, length)
}

// NewUUID returns a short url safe identifier for posts and queue items.
func NewUUID() string {
	return gonanoid.Must()
}
