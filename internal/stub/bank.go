// Package stub is an in-memory stand-in for the VigiPay banking API, used for
// demos and end-to-end tests of the HTTP clients.
package stub

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// InternalBank is the bank code of accounts held by the stub.
const InternalBank = "vigipay"

var (
	// ErrAccountNotFound is returned for unknown account ids or numbers.
	ErrAccountNotFound = errors.New("account not found")
	// ErrForbidden is returned when an account belongs to another user.
	ErrForbidden = errors.New("account does not belong to user")
	// ErrInsufficientFunds is returned when a sender cannot cover a transfer.
	ErrInsufficientFunds = errors.New("insufficient balance")
	// ErrInvalidTransfer is returned for malformed transfer requests.
	ErrInvalidTransfer = errors.New("invalid transfer")
)

// User is a demo login.
type User struct {
	Username     string
	FullName     string
	passwordHash []byte
	ID           int64
	// FraudFlagged marks receivers the safety check always distrusts.
	FraudFlagged bool
}

// Account is a stub bank account.
type Account struct {
	CreatedAt     time.Time
	AccountNumber string
	AccountType   string
	Balance       decimal.Decimal
	ID            int64
	UserID        int64
	IsActive      bool
}

// TransferRecord is a completed transfer.
type TransferRecord struct {
	CreatedAt             time.Time
	Description           string
	ReceiverAccountNumber string
	ReceiverBank          string
	ReceiverName          string
	FeePayer              string
	Amount                decimal.Decimal
	Fee                   decimal.Decimal
	ID                    int64
	SenderAccountID       int64
}

// Bank holds users, accounts and transfers in memory.
type Bank struct {
	now       func() time.Time
	users     map[int64]*User
	accounts  map[int64]*Account
	transfers []TransferRecord
	ids       map[string]int64
	mu        sync.Mutex
}

// NewBank returns an empty bank.
func NewBank() *Bank {
	return &Bank{
		now:      time.Now,
		users:    make(map[int64]*User),
		accounts: make(map[int64]*Account),
		ids:      make(map[string]int64),
	}
}

// AddUser registers a login. The password is stored as a bcrypt hash.
func (b *Bank) AddUser(username, fullName, password string, flagged bool) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	user := &User{
		ID:           b.allocID("user"),
		Username:     username,
		FullName:     fullName,
		FraudFlagged: flagged,
		passwordHash: hash,
	}
	b.users[user.ID] = user
	return user, nil
}

// AddAccount opens an account for a user.
func (b *Bank) AddAccount(userID int64, number, accountType string, balance decimal.Decimal) (*Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.users[userID]; !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrAccountNotFound)
	}
	if b.byNumber(number) != nil {
		return nil, fmt.Errorf("account number %s already exists", number)
	}

	account := &Account{
		ID:            b.allocID("account"),
		UserID:        userID,
		AccountNumber: number,
		AccountType:   accountType,
		Balance:       balance,
		IsActive:      true,
		CreatedAt:     b.now().UTC(),
	}
	b.accounts[account.ID] = account
	return account, nil
}

// Authenticate checks a username and password.
func (b *Bank) Authenticate(username, password string) (*User, bool) {
	b.mu.Lock()
	var found *User
	for _, u := range b.users {
		if u.Username == username {
			found = u
			break
		}
	}
	b.mu.Unlock()

	if found == nil {
		return nil, false
	}
	if err := bcrypt.CompareHashAndPassword(found.passwordHash, []byte(password)); err != nil {
		return nil, false
	}
	return found, true
}

// HasUser reports whether a user id exists.
func (b *Bank) HasUser(id int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.users[id]
	return ok
}

// Accounts lists a user's accounts by id.
func (b *Bank) Accounts(userID int64) []Account {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Account
	for _, a := range b.accounts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OwnedAccount returns an account if it belongs to userID.
func (b *Bank) OwnedAccount(userID, accountID int64) (Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	account, err := b.owned(userID, accountID)
	if err != nil {
		return Account{}, err
	}
	return *account, nil
}

// Lookup resolves an active account number to its holder.
func (b *Bank) Lookup(number string) (Account, User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	account := b.byNumber(number)
	if account == nil || !account.IsActive {
		return Account{}, User{}, ErrAccountNotFound
	}
	return *account, *b.users[account.UserID], nil
}

// Transfers returns completed transfers, oldest first.
func (b *Bank) Transfers() []TransferRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]TransferRecord, len(b.transfers))
	copy(out, b.transfers)
	return out
}

// Fee is the transfer fee. VigiPay does not charge one.
func Fee(decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

// SendExternal debits the sender for a transfer to another bank.
func (b *Bank) SendExternal(userID, senderID int64, rec TransferRecord) (TransferRecord, Account, error) {
	if !rec.Amount.IsPositive() {
		return TransferRecord{}, Account{}, fmt.Errorf("%w: amount must be positive", ErrInvalidTransfer)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sender, err := b.owned(userID, senderID)
	if err != nil {
		return TransferRecord{}, Account{}, err
	}

	rec.Fee = Fee(rec.Amount)
	debit := rec.Amount
	if rec.FeePayer != "receiver" {
		debit = debit.Add(rec.Fee)
	}
	if sender.Balance.LessThan(debit) {
		return TransferRecord{}, Account{}, ErrInsufficientFunds
	}

	sender.Balance = sender.Balance.Sub(debit)
	rec.ID = b.allocID("transfer")
	rec.SenderAccountID = senderID
	rec.CreatedAt = b.now().UTC()
	b.transfers = append(b.transfers, rec)
	return rec, *sender, nil
}

// SendInternal moves money between two stub accounts.
func (b *Bank) SendInternal(userID, senderID int64, receiverNumber string, amount decimal.Decimal, description, feePayer string) (TransferRecord, Account, Account, error) {
	if !amount.IsPositive() {
		return TransferRecord{}, Account{}, Account{}, fmt.Errorf("%w: amount must be positive", ErrInvalidTransfer)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sender, err := b.owned(userID, senderID)
	if err != nil {
		return TransferRecord{}, Account{}, Account{}, err
	}
	receiver := b.byNumber(receiverNumber)
	if receiver == nil || !receiver.IsActive {
		return TransferRecord{}, Account{}, Account{}, ErrAccountNotFound
	}
	if receiver.ID == sender.ID {
		return TransferRecord{}, Account{}, Account{}, fmt.Errorf("%w: cannot transfer to the same account", ErrInvalidTransfer)
	}

	fee := Fee(amount)
	debit, credit := amount, amount
	if feePayer == "receiver" {
		credit = credit.Sub(fee)
	} else {
		debit = debit.Add(fee)
	}
	if sender.Balance.LessThan(debit) {
		return TransferRecord{}, Account{}, Account{}, ErrInsufficientFunds
	}

	sender.Balance = sender.Balance.Sub(debit)
	receiver.Balance = receiver.Balance.Add(credit)

	rec := TransferRecord{
		ID:                    b.allocID("transfer"),
		SenderAccountID:       sender.ID,
		ReceiverAccountNumber: receiver.AccountNumber,
		ReceiverBank:          InternalBank,
		ReceiverName:          b.users[receiver.UserID].FullName,
		Amount:                amount,
		Fee:                   fee,
		FeePayer:              feePayer,
		Description:           description,
		CreatedAt:             b.now().UTC(),
	}
	b.transfers = append(b.transfers, rec)
	return rec, *sender, *receiver, nil
}

// ReceiverFlagged reports whether an account number belongs to a flagged user.
func (b *Bank) ReceiverFlagged(number string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	account := b.byNumber(number)
	if account == nil {
		return false
	}
	return b.users[account.UserID].FraudFlagged
}

func (b *Bank) owned(userID, accountID int64) (*Account, error) {
	account, ok := b.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if account.UserID != userID || !account.IsActive {
		return nil, ErrForbidden
	}
	return account, nil
}

func (b *Bank) byNumber(number string) *Account {
	for _, a := range b.accounts {
		if a.AccountNumber == number {
			return a
		}
	}
	return nil
}

// allocID hands out sequential ids per kind, starting at 1.
func (b *Bank) allocID(kind string) int64 {
	b.ids[kind]++
	return b.ids[kind]
}
