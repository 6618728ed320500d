package order

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every backend must share. The
// store must start empty.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing user", func(t *testing.T) {
		_, err := s.Get(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		doc := json.RawMessage(`{"userId":"u1","cart":[{"sku":"A","qty":2}],"note":"gift"}`)
		require.NoError(t, s.Put(ctx, "u1", doc))

		o, err := s.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", o.UserID)
		assert.JSONEq(t, string(doc), string(o.Data))
		assert.False(t, o.UpdatedAt.IsZero())
	})

	t.Run("last write wins", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "u2", json.RawMessage(`{"userId":"u2","cart":[{"sku":"A"}],"extra":true}`)))
		require.NoError(t, s.Put(ctx, "u2", json.RawMessage(`{"userId":"u2","cart":[{"sku":"B"}]}`)))

		o, err := s.Get(ctx, "u2")
		require.NoError(t, err)
		assert.JSONEq(t, `{"userId":"u2","cart":[{"sku":"B"}]}`, string(o.Data))
	})

	t.Run("users are independent", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "u3", json.RawMessage(`{"userId":"u3","cart":[]}`)))

		o, err := s.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Contains(t, string(o.Data), `"gift"`)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		docs := []string{
			`{"userId":"race","cart":[{"sku":"P1"}]}`,
			`{"userId":"race","cart":[{"sku":"P2"},{"sku":"P2b"}]}`,
		}

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(doc string) {
				defer wg.Done()
				assert.NoError(t, s.Put(ctx, "race", json.RawMessage(doc)))
			}(docs[i%2])
		}
		wg.Wait()

		o, err := s.Get(ctx, "race")
		require.NoError(t, err)

		var got any
		require.NoError(t, json.Unmarshal(o.Data, &got))
		matched := false
		for _, d := range docs {
			var want any
			require.NoError(t, json.Unmarshal([]byte(d), &want))
			matched = matched || assert.ObjectsAreEqual(want, got)
		}
		assert.True(t, matched, "stored order is a mix of writers: %s", o.Data)
	})

	t.Run("odd user ids", func(t *testing.T) {
		for _, id := range []string{"team/a b", "ユーザー", "100%", "'; DROP TABLE orders; --"} {
			doc := json.RawMessage(fmt.Sprintf(`{"userId":%q,"cart":[]}`, id))
			require.NoError(t, s.Put(ctx, id, doc))

			o, err := s.Get(ctx, id)
			require.NoError(t, err, id)
			assert.Equal(t, id, o.UserID)
		}
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})
}
