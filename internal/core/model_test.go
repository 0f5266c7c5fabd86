package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailDomain(t *testing.T) {
	assert.Equal(t, "sender.example", (&Email{From: "bob@sender.example"}).Domain())
	assert.Equal(t, "sender.example", (&Email{From: "bob@SENDER.example"}).Domain())
	assert.Equal(t, "", (&Email{From: "not-an-address"}).Domain())
	assert.Equal(t, "", (&Email{From: "a@b@c"}).Domain())

	// An explicit FromDomain wins over the address
	email := &Email{From: "bob@sender.example", FromDomain: "Other.Example"}
	assert.Equal(t, "other.example", email.Domain())
}

func TestEmailHeaderIsCaseInsensitive(t *testing.T) {
	email := &Email{Headers: map[string][]string{
		"List-Unsubscribe": {"<mailto:leave@list.example>"},
	}}
	assert.Equal(t, "<mailto:leave@list.example>", email.Header("list-unsubscribe"))
	assert.Equal(t, "", email.Header("Precedence"))
}

func TestIsValidCategory(t *testing.T) {
	for _, c := range AllCategories {
		assert.True(t, IsValidCategory(c))
	}
	assert.False(t, IsValidCategory("urgent"))
	assert.False(t, IsValidCategory(""))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, 0.42, Clamp01(0.42))
}
