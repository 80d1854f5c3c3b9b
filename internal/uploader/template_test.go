package uploader

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedRandom(n int) string { return strings.Repeat("r", n) }

func TestGenerateKey(t *testing.T) {
	day := time.Date(2023, time.June, 8, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{"date path", "/{year}/{mon}/{day}/{filename}", "/2023/06/08/pic.jpg"},
		{"empty template", "", "pic.jpg"},
		{"random", "img/{random}-{filename}", "img/" + strings.Repeat("r", RandomLength) + "-pic.jpg"},
		{"each placeholder once", "{year}/{year}/{filename}", "2023/{year}/pic.jpg"},
		{"no filename placeholder", "static/{mon}", "static/06"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateKey(tt.tmpl, "pic.jpg", day, fixedRandom))
		})
	}
}

func TestRandomString(t *testing.T) {
	s := RandomString(RandomLength)
	assert.Len(t, s, RandomLength)
	for _, r := range s {
		assert.True(t, strings.ContainsRune(randomAlphabet, r), "unexpected rune %q", r)
	}
}

func TestObjectKeyStripsLeadingSlash(t *testing.T) {
	deps := Deps{Now: func() time.Time { return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) }, Random: fixedRandom}
	assert.Equal(t, "2024/01/a.png", objectKey("/{year}/{mon}/{filename}", "a.png", deps))
}
