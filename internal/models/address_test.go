package models

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestAddress_IsSenderAllowed(t *testing.T) {
	tests := []struct {
		name      string
		enabled   bool
		whitelist pq.StringArray
		sender    string
		want      bool
	}{
		{"disabled whitelist admits anyone", false, nil, "anyone@example.com", true},
		{"listed sender", true, pq.StringArray{"trusted@example.com"}, "trusted@example.com", true},
		{"unlisted sender", true, pq.StringArray{"trusted@example.com"}, "other@example.com", false},
		{"enabled empty whitelist admits nobody", true, pq.StringArray{}, "anyone@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Address{
				IsWhitelistEnabled: tt.enabled,
				Whitelist:          tt.whitelist,
			}
			assert.Equal(t, tt.want, a.IsSenderAllowed(tt.sender))
		})
	}
}

func TestEmail_MessageIDOrFallback(t *testing.T) {
	e := &Email{}
	assert.Equal(t, "N/A", e.MessageIDOrFallback())

	e.MessageID = "msg-1@example.com"
	assert.Equal(t, "msg-1@example.com", e.MessageIDOrFallback())
}

func TestEmail_DeclaredAttachments(t *testing.T) {
	e := &Email{}
	assert.Equal(t, 0, e.DeclaredAttachments())

	n := 4
	e.NumAttachments = &n
	assert.Equal(t, 4, e.DeclaredAttachments())
}

func TestEmail_Recipient(t *testing.T) {
	e := &Email{}
	assert.Equal(t, "", e.Recipient())

	e.Recipients = pq.StringArray{"user@vaulty.test", "second@vaulty.test"}
	assert.Equal(t, "user@vaulty.test", e.Recipient())
}
