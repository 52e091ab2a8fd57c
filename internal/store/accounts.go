package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tOgg1/threadline/internal/models"
)

// SaveAccount inserts or renames an account context.
func (s *Store) SaveAccount(ctx context.Context, account models.Account) error {
	if account.ID <= 0 {
		return models.ErrInvalidAccount
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, account.ID, account.Name)
	if err != nil {
		return fmt.Errorf("failed to save account %d: %w", account.ID, err)
	}
	return nil
}

// SetPreferredAccount marks the account whose copies win duplicate
// tie-breaks. 0 clears the preference.
func (s *Store) SetPreferredAccount(ctx context.Context, accountID int64) error {
	return s.transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE accounts SET preferred = 0`); err != nil {
			return fmt.Errorf("failed to clear preferred account: %w", err)
		}
		if accountID == 0 {
			return nil
		}
		res, err := tx.ExecContext(ctx, `UPDATE accounts SET preferred = 1 WHERE id = ?`, accountID)
		if err != nil {
			return fmt.Errorf("failed to set preferred account: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("account %d: %w", accountID, models.ErrInvalidAccount)
		}
		return nil
	})
}

// SaveActor inserts or updates a post author.
func (s *Store) SaveActor(ctx context.Context, actor models.Actor) error {
	if actor.ID <= 0 {
		return fmt.Errorf("actor: %w", models.ErrInvalidID)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO actors (id, name, known) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, known = excluded.known
	`, actor.ID, actor.Name, boolToInt(actor.Known))
	if err != nil {
		return fmt.Errorf("failed to save actor %d: %w", actor.ID, err)
	}
	return nil
}

// Accounts lists the stored account contexts by id.
func (s *Store) Accounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(&account.ID, &account.Name); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// The methods below make Store a models.AccountResolver. Lookup failures
// fall back to the same placeholders the in-memory resolver uses.

func (s *Store) AccountName(accountID int64) string {
	var name string
	err := s.db.QueryRowContext(context.Background(), `SELECT name FROM accounts WHERE id = ?`, accountID).Scan(&name)
	if err != nil || name == "" {
		s.logLookup(err, "account", accountID)
		return fmt.Sprintf("#%d", accountID)
	}
	return name
}

func (s *Store) ActorName(actorID int64) string {
	var name string
	err := s.db.QueryRowContext(context.Background(), `SELECT name FROM actors WHERE id = ?`, actorID).Scan(&name)
	if err != nil || name == "" {
		s.logLookup(err, "actor", actorID)
		return fmt.Sprintf("#%d", actorID)
	}
	return name
}

func (s *Store) PreferredAccount() int64 {
	var id int64
	err := s.db.QueryRowContext(context.Background(), `SELECT id FROM accounts WHERE preferred = 1 LIMIT 1`).Scan(&id)
	if err != nil {
		s.logLookup(err, "preferred account", 0)
		return 0
	}
	return id
}

func (s *Store) IsKnownActor(actorID int64) bool {
	var known int
	err := s.db.QueryRowContext(context.Background(), `SELECT known FROM actors WHERE id = ?`, actorID).Scan(&known)
	if err != nil {
		s.logLookup(err, "actor", actorID)
		return false
	}
	return known != 0
}

func (s *Store) logLookup(err error, what string, id int64) {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return
	}
	s.log.Warn().Err(err).Int64("id", id).Msgf("%s lookup failed", what)
}

var _ models.AccountResolver = (*Store)(nil)
