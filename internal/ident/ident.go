// Package ident generates room names and participant ids. Both are a
// timestamp followed by a random suffix, so uniqueness is probabilistic.
package ident

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// now is replaced in tests.
var now = time.Now

func stamp() string {
	return strconv.FormatInt(now().UnixMilli(), 36)
}

// NewRoomName returns a memorable room name, e.g. "mf3k2x1a-brave-harbor".
func NewRoomName() string {
	adjective := adjectives[randomIndex(len(adjectives))]
	noun := nouns[randomIndex(len(nouns))]
	return fmt.Sprintf("%s-%s-%s", stamp(), adjective, noun)
}

// NewParticipantID returns an id such as "mf3k2x1a-9f86d081".
func NewParticipantID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return stamp() + "-" + suffix
}

// NewUniqueRoomName draws room names until isUnique accepts one.
func NewUniqueRoomName(isUnique func(string) bool) string {
	name := NewRoomName()
	for !isUnique(name) {
		name = NewRoomName()
	}
	return name
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		log.Panic("Failed to generate random index:", err)
	}
	return int(n.Int64())
}
