package mongostore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func duplicateKey() error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}
}

// idTable mimics a collection's unique _id index: ids handed out by next
// can be taken by another writer before insert runs.
type idTable struct {
	taken map[int]bool
	max   int
}

func (tb *idTable) next(context.Context) (int, error) {
	return tb.max + 1, nil
}

func (tb *idTable) insert(_ context.Context, id int) error {
	if tb.taken[id] {
		return duplicateKey()
	}
	tb.taken[id] = true
	if id > tb.max {
		tb.max = id
	}
	return nil
}

func TestInsertWithNextIDRetriesOnDuplicateKey(t *testing.T) {
	tb := &idTable{taken: map[int]bool{1: true}, max: 1}
	racer := 0
	insert := func(ctx context.Context, id int) error {
		if racer < 2 {
			racer++
			require.NoError(t, tb.insert(ctx, id), "concurrent writer takes the id first")
		}
		return tb.insert(ctx, id)
	}

	id, err := insertWithNextID(context.Background(), tb.next, insert)
	require.NoError(t, err)
	assert.Equal(t, 4, id)
	assert.Len(t, tb.taken, 4)
}

func TestInsertWithNextIDGivesUp(t *testing.T) {
	attempts := 0
	_, err := insertWithNextID(context.Background(),
		func(context.Context) (int, error) { return 7, nil },
		func(context.Context, int) error { attempts++; return duplicateKey() })
	require.Error(t, err)
	assert.True(t, mongo.IsDuplicateKeyError(err))
	assert.Equal(t, maxIDAttempts, attempts)
}

func TestInsertWithNextIDPassesOtherErrorsThrough(t *testing.T) {
	boom := errors.New("connection reset")
	attempts := 0
	_, err := insertWithNextID(context.Background(),
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context, int) error { attempts++; return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)

	_, err = insertWithNextID(context.Background(),
		func(context.Context) (int, error) { return 0, boom },
		func(context.Context, int) error { t.Fatal("insert without an id"); return nil })
	assert.ErrorIs(t, err, boom)
}
