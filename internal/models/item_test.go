package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestItemMutationOnlyWhileNotLoaded(t *testing.T) {
	draft := Item{ID: 1, Status: StatusDraft}
	require.NoError(t, draft.SetBody("hello"))
	require.NoError(t, draft.SetFavorited(true))
	require.NoError(t, draft.SetReblogged(true))
	require.NoError(t, draft.AddReblogger(9, "carol"))
	require.Equal(t, "hello", draft.Body)
	require.Equal(t, "carol", draft.Rebloggers[9])

	loaded := Item{ID: 2, Status: StatusLoaded, Body: "fixed"}
	require.ErrorIs(t, loaded.SetBody("changed"), ErrImmutableItem)
	require.ErrorIs(t, loaded.SetFavorited(true), ErrImmutableItem)
	require.ErrorIs(t, loaded.AddReblogger(1, "x"), ErrImmutableItem)
	require.Equal(t, "fixed", loaded.Body)
	require.False(t, loaded.Favorited)
}

func TestItemCloneIsIndependent(t *testing.T) {
	item := Item{ID: 1, Rebloggers: map[int64]string{1: "a"}}
	cloned := item.Clone()
	cloned.Rebloggers[2] = "b"
	require.Len(t, item.Rebloggers, 1)
}

func TestItemValidate(t *testing.T) {
	now := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
	valid := Item{ID: 1, Status: StatusLoaded, CreatedAt: now, SentAt: now}
	require.NoError(t, valid.Validate())

	bad := Item{ID: 0, Status: "weird", ReplyToID: 0}
	err := bad.Validate()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidID))
	require.True(t, errors.Is(err, ErrInvalidStatus))
	require.True(t, errors.Is(err, ErrMissingTime))

	self := Item{ID: 3, Status: StatusLoaded, CreatedAt: now, SentAt: now, ReplyToID: 3}
	require.ErrorIs(t, self.Validate(), ErrSelfReply)
}

func TestAccountsResolver(t *testing.T) {
	accounts := NewAccounts()
	require.ErrorIs(t, accounts.AddAccount(Account{ID: 0}), ErrInvalidAccount)
	require.NoError(t, accounts.AddAccount(Account{ID: 1, Name: "me@home.social"}))
	accounts.AddActor(Actor{ID: 10, Name: "alice", Known: true})
	accounts.AddActor(Actor{ID: 11, Name: "bob"})
	accounts.SetPreferred(1)

	require.Equal(t, "me@home.social", accounts.AccountName(1))
	require.Equal(t, "#2", accounts.AccountName(2))
	require.Equal(t, "alice", accounts.ActorName(10))
	require.True(t, accounts.IsKnownActor(10))
	require.False(t, accounts.IsKnownActor(11))
	require.False(t, accounts.IsKnownActor(12))
	require.Equal(t, int64(1), accounts.PreferredAccount())
}
