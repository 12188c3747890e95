package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/signalforge/signalforge/internal/domain/model"
	"github.com/signalforge/signalforge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AccountStore = (*AccountRepo)(nil)

// createdAtLayout is fixed width so that created_at sorts lexically in
// chronological order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

const accountColumns = `id, class, name, app_key, app_secret, access_token, created_at`

// AccountRepo is the SQLite implementation of the AccountStore port.
// Both account classes live in one table keyed by the class column.
// Secret fields are stored as plaintext.
type AccountRepo struct {
	db *DB
}

// NewAccountRepo creates a new AccountRepo backed by the given DB.
func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// List returns the accounts of a class, newest created first. Accounts
// created within the same nanosecond fall back to insertion order.
func (r *AccountRepo) List(ctx context.Context, class model.AccountClass) ([]model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE class = ? ORDER BY created_at DESC, rowid DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, string(class))
	if err != nil {
		return nil, fmt.Errorf("list %s accounts: %w", class, err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s accounts: %w", class, err)
	}

	return accounts, nil
}

// Get returns a single account by class and id.
func (r *AccountRepo) Get(ctx context.Context, class model.AccountClass, id string) (model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE class = ? AND id = ?`

	account, err := scanAccount(r.db.Reader.QueryRowContext(ctx, query, string(class), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("get %s account %q: %w", class, id, driven.ErrAccountNotFound)
	}
	if err != nil {
		return model.Account{}, err
	}
	return account, nil
}

// Create inserts a new account. No uniqueness is enforced on name.
func (r *AccountRepo) Create(ctx context.Context, account model.Account) error {
	const query = `INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		account.ID,
		string(account.Class),
		account.Name,
		account.AppKey,
		account.AppSecret,
		account.AccessToken,
		account.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("create %s account %q: %w", account.Class, account.ID, err)
	}
	return nil
}

// Update overwrites name and all three secrets. Nothing from the previous
// row is carried over except id, class and created_at.
func (r *AccountRepo) Update(ctx context.Context, class model.AccountClass, id string, fields model.AccountFields) (model.Account, error) {
	const query = `UPDATE accounts
		SET name = ?, app_key = ?, app_secret = ?, access_token = ?
		WHERE class = ? AND id = ?
		RETURNING ` + accountColumns

	row := r.db.Writer.QueryRowContext(ctx, query,
		fields.Name,
		fields.AppKey,
		fields.AppSecret,
		fields.AccessToken,
		string(class),
		id,
	)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("update %s account %q: %w", class, id, driven.ErrAccountNotFound)
	}
	if err != nil {
		return model.Account{}, err
	}
	return account, nil
}

// Delete removes an account by class and id.
func (r *AccountRepo) Delete(ctx context.Context, class model.AccountClass, id string) error {
	const query = `DELETE FROM accounts WHERE class = ? AND id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, string(class), id)
	if err != nil {
		return fmt.Errorf("delete %s account %q: %w", class, id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete %s account %q: %w", class, id, driven.ErrAccountNotFound)
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(s rowScanner) (model.Account, error) {
	var (
		account   model.Account
		class     string
		createdAt string
	)
	err := s.Scan(
		&account.ID,
		&class,
		&account.Name,
		&account.AppKey,
		&account.AppSecret,
		&account.AccessToken,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, err
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("scan account: %w", err)
	}

	account.Class = model.AccountClass(class)
	account.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return model.Account{}, fmt.Errorf("parse created_at for account %q: %w", account.ID, err)
	}

	return account, nil
}

// parseTime accepts the layout written by this package plus the formats
// SQLite's own date functions produce.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		createdAtLayout,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
