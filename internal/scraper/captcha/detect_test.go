package captcha

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectChallengeMarkup(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"image id", `<div><img id="kontaktdaten-captcha-image" src="/captcha/1.png"></div>`, true},
		{"image alt", `<img alt="Sicherheitsabfrage" src="/img/x.png">`, true},
		{"form copy", `<form id="kontakt"><p>Sicherheitsabfrage: Geben Sie die dargestellten Zeichen ein</p><img src="/x"><input name="code"></form>`, true},
		{"plain page", `<html><body><h1>Sachbearbeiter (m/w/d)</h1><a href="mailto:a@b.de">Mail</a></body></html>`, false},
		{"copy without image", `<p>Keine Sicherheitsabfrage notwendig</p>`, false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectChallengeMarkup(tt.html))
		})
	}
}

func TestCleanTranscription(t *testing.T) {
	assert.Equal(t, "AbC12", cleanTranscription("AbC12"))
	assert.Equal(t, "AbC12", cleanTranscription("```\nAbC12\n```"))
	assert.Equal(t, "AbC12", cleanTranscription(`"AbC12".`))
	assert.Equal(t, "", cleanTranscription("   "))
}

func TestImageMediaType(t *testing.T) {
	assert.Equal(t, "image/jpeg", imageMediaType([]byte{0xFF, 0xD8, 0xFF, 0xE0}))
	assert.Equal(t, "image/gif", imageMediaType([]byte("GIF89a")))
	assert.Equal(t, "image/png", imageMediaType([]byte{0x89, 'P', 'N', 'G'}))
}
