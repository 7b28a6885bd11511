package feedid

import (
	"fmt"
	"math/rand"
	"regexp"
	"sync"
	"time"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz1234567890"

// DefaultLength is the length of generated feed ids
const DefaultLength = 8

// Generator creates random feed ids of length L
type Generator struct {
	L int

	m   sync.Mutex
	rnd *rand.Rand
}

// New returns a feed id generator producing ids of length l
func New(l int) *Generator {
	return &Generator{
		L:   l,
		rnd: rand.New(rand.NewSource(time.Now().UTC().UnixNano())),
	}
}

// NewRandom generates a new random feed id. It is the callers responsibility to check for uniqueness
func (g *Generator) NewRandom() string {
	id := make([]byte, g.L)

	g.m.Lock()
	for i := range id {
		id[i] = alphabet[g.rnd.Intn(len(alphabet))]
	}
	g.m.Unlock()

	return string(id)
}

var isAlphaNumeric = regexp.MustCompile(`^[a-zA-Z0-9]+$`).MatchString

// Verify checks that id could appear in a newsletter address
func Verify(id string) error {
	if id == "" {
		return fmt.Errorf("feed id must not be empty")
	} else if len(id) > 64 {
		return fmt.Errorf("feed id must be fewer than 64 characters: %s", id)
	} else if !isAlphaNumeric(id) {
		return fmt.Errorf("feed id may only contain letters (a-z, A-Z) and numbers (0-9): %s", id)
	}
	return nil
}
