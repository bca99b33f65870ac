package session

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaulty/mailvault/internal/models"
)

func testEmail(id string, attachments int) models.Email {
	return models.Email{
		ID:             id,
		Sender:         "sender@example.com",
		Recipients:     pq.StringArray{"user@vaulty.test"},
		NumAttachments: &attachments,
	}
}

func testAddress() models.Address {
	return models.Address{
		ID:      "addr_test",
		Address: "user@vaulty.test",
	}
}

func TestCache_DispatchUnknownID(t *testing.T) {
	c := NewCache()

	last, err := c.Dispatch("missing", func(View) error { return nil })

	assert.False(t, last)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCache_RegisterWithoutAttachmentsPanics(t *testing.T) {
	c := NewCache()

	assert.Panics(t, func() {
		c.Register("id", models.Email{ID: "id"}, testAddress())
	})
}

func TestCache_RegisterTwicePanics(t *testing.T) {
	c := NewCache()
	c.Register("id", testEmail("id", 1), testAddress())

	assert.Panics(t, func() {
		c.Register("id", testEmail("id", 1), testAddress())
	})
}

func TestCache_CountdownRemovesEntry(t *testing.T) {
	c := NewCache()
	c.Register("id", testEmail("id", 3), testAddress())

	for i := 0; i < 3; i++ {
		last, err := c.Dispatch("id", func(view View) error {
			assert.Equal(t, "id", view.Email.ID)
			assert.Equal(t, "user@vaulty.test", view.Address.Address)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, i == 2, last, "only the final dispatch is terminal")
	}

	assert.False(t, c.Contains("id"))
	assert.Equal(t, 0, c.Len())

	// Over-delivery after exhaustion
	_, err := c.Dispatch("id", func(View) error { return nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCache_CountdownAdvancesOnFailure(t *testing.T) {
	c := NewCache()
	c.Register("id", testEmail("id", 2), testAddress())

	opErr := errors.New("upload failed")

	last, err := c.Dispatch("id", func(View) error { return opErr })
	assert.ErrorIs(t, err, opErr)
	assert.False(t, last)

	// The failed attachment still consumed its slot
	last, err = c.Dispatch("id", func(View) error { return nil })
	require.NoError(t, err)
	assert.True(t, last)
	assert.False(t, c.Contains("id"))
}

func TestCache_ConcurrentDispatchExactlyOneTerminal(t *testing.T) {
	const attachments = 50

	c := NewCache()
	c.Register("id", testEmail("id", attachments), testAddress())

	var terminal int64
	var processed int64
	var wg sync.WaitGroup

	for i := 0; i < attachments; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last, err := c.Dispatch("id", func(View) error { return nil })
			if err == nil {
				atomic.AddInt64(&processed, 1)
			}
			if last {
				atomic.AddInt64(&terminal, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(attachments), processed)
	assert.Equal(t, int64(1), terminal, "exactly one dispatch observes the terminal countdown")
	assert.Equal(t, 0, c.Len())
}

func TestCache_ConcurrentOverDelivery(t *testing.T) {
	const attachments = 10
	const calls = 40

	c := NewCache()
	c.Register("id", testEmail("id", attachments), testAddress())

	var processed int64
	var notFound int64
	var wg sync.WaitGroup

	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Dispatch("id", func(View) error { return nil })
			switch {
			case err == nil:
				atomic.AddInt64(&processed, 1)
			case errors.Is(err, ErrSessionNotFound):
				atomic.AddInt64(&notFound, 1)
			}
		}()
	}
	wg.Wait()

	// Only the declared number of attachments is ever processed
	assert.Equal(t, int64(attachments), processed)
	assert.Equal(t, int64(calls-attachments), notFound)
	assert.Equal(t, 0, c.Len())
}

func TestCache_IndependentSessions(t *testing.T) {
	c := NewCache()
	c.Register("a", testEmail("a", 1), testAddress())
	c.Register("b", testEmail("b", 2), testAddress())

	last, err := c.Dispatch("a", func(View) error { return nil })
	require.NoError(t, err)
	assert.True(t, last)

	assert.False(t, c.Contains("a"))
	assert.True(t, c.Contains("b"))
	assert.Equal(t, 1, c.Len())
}
