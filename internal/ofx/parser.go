// Package ofx reads balance snapshots from OFX/QFX statement files.
package ofx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/vigil/internal/common"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// ErrNoStatements indicates the file held no bank or credit card statement.
var ErrNoStatements = errors.New("no statements in OFX file")

// Statement kinds.
const (
	KindBank       = "bank"
	KindCreditCard = "credit_card"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Statement is the balance section of one account statement.
type Statement struct {
	AsOf      time.Time
	Available *decimal.Decimal
	AccountID string
	Currency  string
	Kind      string
	Ledger    decimal.Decimal
}

// Spendable is the available balance when the statement has one, otherwise
// the ledger balance.
func (s Statement) Spendable() decimal.Decimal {
	if s.Available != nil {
		return *s.Available
	}
	return s.Ledger
}

// Parser implements OFX/QFX balance parsing.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{logger: slog.Default().With("component", "ofx")}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Some SGML exports drop the closing bracket of a bare opening tag.
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseStatements parses an OFX/QFX file and returns its balances.
func (p *Parser) ParseStatements(ctx context.Context, reader io.Reader) ([]Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var statements []Statement

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		s, err := newStatement(KindBank, string(stmt.BankAcctFrom.AcctID), stmt.CurDef.String(),
			stmt.BalAmt, stmt.DtAsOf, stmt.AvailBalAmt)
		if err != nil {
			p.logger.Warn("Failed to read bank statement balance", "account", stmt.BankAcctFrom.AcctID, "error", err)
			continue
		}
		statements = append(statements, s)
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		s, err := newStatement(KindCreditCard, string(stmt.CCAcctFrom.AcctID), stmt.CurDef.String(),
			stmt.BalAmt, stmt.DtAsOf, stmt.AvailBalAmt)
		if err != nil {
			p.logger.Warn("Failed to read credit card statement balance", "account", stmt.CCAcctFrom.AcctID, "error", err)
			continue
		}
		statements = append(statements, s)
	}

	if len(statements) == 0 {
		return nil, ErrNoStatements
	}

	p.logger.Info("Parsed OFX file", "statements", len(statements))
	return statements, nil
}

// Balance returns the statement for accountID, or the only statement when
// accountID is empty.
func (p *Parser) Balance(ctx context.Context, reader io.Reader, accountID string) (Statement, error) {
	statements, err := p.ParseStatements(ctx, reader)
	if err != nil {
		return Statement{}, err
	}

	if accountID == "" {
		if len(statements) == 1 {
			return statements[0], nil
		}
		return Statement{}, fmt.Errorf("%w: %d statements, set ofx.account_id", common.ErrUnknownAccount, len(statements))
	}
	for _, s := range statements {
		if s.AccountID == accountID {
			return s, nil
		}
	}
	return Statement{}, fmt.Errorf("%w: OFX account %s", common.ErrUnknownAccount, accountID)
}

func newStatement(kind, accountID, currency string, ledger ofxgo.Amount, asOf ofxgo.Date, available *ofxgo.Amount) (Statement, error) {
	s := Statement{
		Kind:      kind,
		AccountID: accountID,
		Currency:  currency,
		AsOf:      asOf.Time,
	}

	var err error
	if s.Ledger, err = toDecimal(ledger); err != nil {
		return Statement{}, err
	}
	if available != nil {
		v, err := toDecimal(*available)
		if err != nil {
			return Statement{}, err
		}
		s.Available = &v
	}
	return s, nil
}

func toDecimal(a ofxgo.Amount) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(a.Rat.FloatString(4))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %s: %w", a.String(), err)
	}
	return d, nil
}
