package stub

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DemoPassword is the password of every seeded demo user.
const DemoPassword = "vigil-demo"

type demoAccount struct {
	number  string
	kind    string
	balance int64
}

type demoUser struct {
	username string
	fullName string
	accounts []demoAccount
	flagged  bool
}

var demoUsers = []demoUser{
	{
		username: "an",
		fullName: "Nguyen Van An",
		accounts: []demoAccount{
			{number: "1234567890", kind: "checking", balance: 10_000_000},
			{number: "1234567891", kind: "savings", balance: 50_000_000},
		},
	},
	{
		username: "binh",
		fullName: "Tran Thi Binh",
		accounts: []demoAccount{{number: "0987654321", kind: "checking", balance: 2_000_000}},
	},
	{
		username: "cuong",
		fullName: "Le Van Cuong",
		flagged:  true,
		accounts: []demoAccount{{number: "5555666677", kind: "checking", balance: 300_000}},
	},
}

// DemoBank returns a bank seeded with three users. User "an" owns accounts
// 1 and 2; "cuong" is flagged for fraud checking.
func DemoBank() (*Bank, error) {
	bank := NewBank()
	for _, du := range demoUsers {
		user, err := bank.AddUser(du.username, du.fullName, DemoPassword, du.flagged)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", du.username, err)
		}
		for _, da := range du.accounts {
			if _, err := bank.AddAccount(user.ID, da.number, da.kind, decimal.NewFromInt(da.balance)); err != nil {
				return nil, fmt.Errorf("seed account %s: %w", da.number, err)
			}
		}
	}
	return bank, nil
}
