package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/vigil/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ofxHeader = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20260315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
`

const bankMessages = `<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>VND
<BANKACCTFROM>
<BANKID>970422
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20260301120000[0:GMT]
<DTEND>20260314120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20260305120000[0:GMT]
<TRNAMT>-250000.00
<FITID>2026030501
<NAME>GRAB
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>15250000.00
<DTASOF>20260314120000[0:GMT]
</LEDGERBAL>
<AVAILBAL>
<BALAMT>15000000.00
<DTASOF>20260314120000[0:GMT]
</AVAILBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
`

const creditCardMessages = `<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>VND
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20260301120000[0:GMT]
<DTEND>20260314120000[0:GMT]
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500000.00
<DTASOF>20260314120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
`

func statementFile(messages ...string) string {
	return ofxHeader + strings.Join(messages, "") + "</OFX>"
}

func TestParseStatements(t *testing.T) {
	p := NewParser()

	statements, err := p.ParseStatements(context.Background(), strings.NewReader(statementFile(bankMessages, creditCardMessages)))
	require.NoError(t, err)
	require.Len(t, statements, 2)

	bank := statements[0]
	assert.Equal(t, KindBank, bank.Kind)
	assert.Equal(t, "1234567890", bank.AccountID)
	assert.Equal(t, "VND", bank.Currency)
	assert.Equal(t, "15250000", bank.Ledger.String())
	require.NotNil(t, bank.Available)
	assert.Equal(t, "15000000", bank.Spendable().String())
	assert.True(t, bank.AsOf.Equal(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)))

	card := statements[1]
	assert.Equal(t, KindCreditCard, card.Kind)
	assert.Nil(t, card.Available)
	assert.Equal(t, "-500000", card.Spendable().String())
}

func TestParseStatements_Errors(t *testing.T) {
	p := NewParser()

	_, err := p.ParseStatements(context.Background(), strings.NewReader("not ofx"))
	assert.Error(t, err)

	// A signon-only response carries no balances.
	_, err = p.ParseStatements(context.Background(), strings.NewReader(statementFile()))
	assert.Error(t, err)
}

func TestBalance(t *testing.T) {
	p := NewParser()
	ctx := context.Background()

	tests := []struct {
		name      string
		file      string
		accountID string
		want      string
		wantErr   error
	}{
		{name: "single statement", file: statementFile(bankMessages), want: "1234567890"},
		{name: "by account", file: statementFile(bankMessages, creditCardMessages), accountID: "4111111111111111", want: "4111111111111111"},
		{name: "ambiguous", file: statementFile(bankMessages, creditCardMessages), wantErr: common.ErrUnknownAccount},
		{name: "unknown account", file: statementFile(bankMessages), accountID: "999", wantErr: common.ErrUnknownAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Balance(ctx, strings.NewReader(tt.file), tt.accountID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.AccountID)
		})
	}
}

func TestPreprocessOFX(t *testing.T) {
	p := NewParser()

	got := p.preprocessOFX("\n\n  <SEVERITY>Info</SEVERITY>\n<STMTRS\n")
	assert.Equal(t, "<SEVERITY>INFO</SEVERITY>\n<STMTRS>\n", got)
}
