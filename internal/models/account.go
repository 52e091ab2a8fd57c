package models

import (
	"fmt"
	"sync"
)

// AccountResolver resolves names for accounts and actors. It is read-only and
// passed explicitly to whatever needs name-based tie-breaks.
type AccountResolver interface {
	// AccountName returns the display name of an account context.
	AccountName(accountID int64) string
	// ActorName returns the display name of a post author.
	ActorName(actorID int64) string
	// PreferredAccount is the account whose copies win ties, or 0.
	PreferredAccount() int64
	// IsKnownActor reports whether the actor is followed by or is one of
	// the user's accounts.
	IsKnownActor(actorID int64) bool
}

// Account is a local account context.
type Account struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Actor is a post author as seen from the local accounts.
type Actor struct {
	ID    int64  `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Known bool   `json:"known,omitempty" yaml:"known,omitempty"`
}

// Accounts is an in-memory AccountResolver.
type Accounts struct {
	mu        sync.RWMutex
	preferred int64
	accounts  map[int64]Account
	actors    map[int64]Actor
}

// NewAccounts creates an empty resolver.
func NewAccounts() *Accounts {
	return &Accounts{
		accounts: make(map[int64]Account),
		actors:   make(map[int64]Actor),
	}
}

// AddAccount registers an account context.
func (a *Accounts) AddAccount(account Account) error {
	if account.ID <= 0 {
		return ErrInvalidAccount
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[account.ID] = account
	return nil
}

// AddActor registers a post author.
func (a *Accounts) AddActor(actor Actor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actors[actor.ID] = actor
}

// SetPreferred selects the account that wins duplicate tie-breaks.
func (a *Accounts) SetPreferred(accountID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.preferred = accountID
}

func (a *Accounts) AccountName(accountID int64) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if account, ok := a.accounts[accountID]; ok && account.Name != "" {
		return account.Name
	}
	return fmt.Sprintf("#%d", accountID)
}

func (a *Accounts) ActorName(actorID int64) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if actor, ok := a.actors[actorID]; ok && actor.Name != "" {
		return actor.Name
	}
	return fmt.Sprintf("#%d", actorID)
}

func (a *Accounts) PreferredAccount() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.preferred
}

func (a *Accounts) IsKnownActor(actorID int64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	actor, ok := a.actors[actorID]
	return ok && actor.Known
}
