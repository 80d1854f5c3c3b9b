package uploader

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// RandomLength is the length of the {random} placeholder value
const RandomLength = 20

const randomAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomString returns n random alphanumeric characters
func RandomString(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(randomAlphabet[rand.IntN(len(randomAlphabet))])
	}
	return sb.String()
}

// GenerateKey expands a path template. {year}, {mon}, {day}, {random} and
// {filename} are each substituted once, in that order. An empty template
// yields the filename unchanged.
func GenerateKey(tmpl, filename string, now time.Time, random func(n int) string) string {
	if strings.TrimSpace(tmpl) == "" {
		return filename
	}

	key := tmpl
	key = strings.Replace(key, "{year}", fmt.Sprintf("%04d", now.Year()), 1)
	key = strings.Replace(key, "{mon}", fmt.Sprintf("%02d", int(now.Month())), 1)
	key = strings.Replace(key, "{day}", fmt.Sprintf("%02d", now.Day()), 1)
	if strings.Contains(key, "{random}") {
		key = strings.Replace(key, "{random}", random(RandomLength), 1)
	}
	key = strings.Replace(key, "{filename}", filename, 1)
	return key
}

// objectKey is GenerateKey without leading slashes, as object stores expect
func objectKey(tmpl, filename string, deps Deps) string {
	return strings.TrimLeft(GenerateKey(tmpl, filename, deps.Now(), deps.Random), "/")
}
