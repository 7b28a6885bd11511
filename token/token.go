package token

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/go-alone"
	"github.com/pkg/errors"
)

// ErrTokenExpired is returned when the given token's ttl in the past
var ErrTokenExpired = errors.New("token: token has expired")

// ErrInvalidToken is returned when the token has an invalid signature or is otherwise invalid
var ErrInvalidToken = errors.New("token: invalid token")

// Generator signs and verifies short lived tokens for a subject
type Generator struct {
	s      *goalone.Sword
	maxAge time.Duration
	now    func() time.Time
}

// NewGenerator takes a key and a max age for the token then returns a new token generator
func NewGenerator(k string, m time.Duration) *Generator {
	return &Generator{s: goalone.New([]byte(k)), maxAge: m, now: time.Now}
}

// MaxAge is how long issued tokens stay valid
func (tg *Generator) MaxAge() time.Duration {
	return tg.maxAge
}

// NewToken returns a signed subject that expires after the generator's maxAge
func (tg *Generator) NewToken(subject string) string {
	exp := tg.now().Add(tg.maxAge).UTC().Unix()
	tk := fmt.Sprintf("%v.%v", subject, exp)

	return string(tg.s.Sign([]byte(tk)))
}

// VerifyToken returns the subject from the given token or an error
func (tg *Generator) VerifyToken(t string) (string, error) {
	tByte, err := tg.s.Unsign([]byte(t))
	if err != nil {
		return "", ErrInvalidToken
	}

	i := strings.LastIndex(string(tByte), ".")
	if i < 0 {
		return "", ErrInvalidToken
	}

	exp, err := strconv.ParseInt(string(tByte[i+1:]), 10, 64)
	if err != nil {
		return "", errors.Wrap(ErrInvalidToken, err.Error())
	}

	if time.Unix(exp, 0).Before(tg.now()) {
		return "", ErrTokenExpired
	}

	return string(tByte[:i]), nil
}
