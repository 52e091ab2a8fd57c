package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/threadline/internal/duplicates"
	"github.com/tOgg1/threadline/internal/models"
)

func TestKeywordsMatchCleanedBody(t *testing.T) {
	f, err := New(Config{HiddenKeywords: []string{" Spoiler ", "crypto*", ""}}, nil, duplicates.New(nil))
	require.NoError(t, err)

	require.False(t, f.Keep(models.Item{ID: 1, Body: "<p>Big SPOILER ahead</p>"}))
	require.False(t, f.Keep(models.Item{ID: 2, Body: "buy cryptocurrency now"}))
	require.True(t, f.Keep(models.Item{ID: 3, Body: "nothing to see"}))

	reason, hidden := f.Reason(models.Item{ID: 2, Body: "cryptos"})
	require.True(t, hidden)
	require.Equal(t, "keyword crypto*", reason)
}

func TestInvalidPattern(t *testing.T) {
	_, err := New(Config{HiddenKeywords: []string{"[unclosed"}}, nil, nil)
	require.Error(t, err)
}

func TestHideRepliesNotFromKnown(t *testing.T) {
	accounts := models.NewAccounts()
	accounts.AddActor(models.Actor{ID: 10, Name: "friend", Known: true})
	accounts.AddActor(models.Actor{ID: 11, Name: "stranger"})

	f, err := New(Config{HideRepliesNotFromKnown: true}, accounts, nil)
	require.NoError(t, err)
	require.False(t, f.Empty())

	require.True(t, f.Keep(models.Item{ID: 1, ActorID: 10, ReplyToID: 5}))
	require.False(t, f.Keep(models.Item{ID: 2, ActorID: 11, ReplyToID: 5}))
	require.True(t, f.Keep(models.Item{ID: 3, ActorID: 11}), "top-level posts are not replies")
}

func TestNilAndEmptyFilters(t *testing.T) {
	var f *Filter
	require.True(t, f.Keep(models.Item{ID: 1, Body: "anything"}))
	require.True(t, f.Empty())

	f, err := New(Config{HideRepliesNotFromKnown: true}, nil, nil)
	require.NoError(t, err)
	require.True(t, f.Empty())
}
