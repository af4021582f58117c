// Package idgen generates short, URL-safe identifiers backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the character set of the random part.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of random characters, excluding the prefix.
const Length = 12

// NotificationPrefix is prepended to notification IDs.
const NotificationPrefix = "ntf-"

// GenerateWithPrefix returns a new ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Notification returns a new notification ID.
func Notification() (string, error) {
	return GenerateWithPrefix(NotificationPrefix)
}
