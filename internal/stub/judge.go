package stub

import (
	"context"
	"strings"

	"github.com/Veraticus/vigil/internal/llm"
	"golang.org/x/text/unicode/norm"
)

// Judge decides whether a transfer narrative describes a scam. It returns
// llm.VerdictScam or llm.VerdictNotScam.
type Judge interface {
	Judge(ctx context.Context, input string) (string, error)
}

var _ Judge = (*llm.ScamJudge)(nil)

// scamSignals are phrases common in Vietnamese transfer scams, in English and
// Vietnamese.
var scamSignals = []string{
	"police", "công an", "court", "tòa án", "arrest",
	"prize", "trúng thưởng", "lottery", "gift card",
	"investment", "đầu tư", "guaranteed return", "lợi nhuận",
	"otp", "verification fee", "phí xác minh", "deposit to receive",
	"job", "việc làm", "tuyển dụng",
	"customs", "hải quan", "package held",
	"bank staff", "nhân viên ngân hàng", "crypto", "tiền ảo",
	"never met", "urgent", "khẩn cấp",
}

// KeywordJudge flags narratives mentioning common scam signals. It is used
// when no language model is configured.
type KeywordJudge struct {
	Signals []string
}

// NewKeywordJudge returns a judge with the built-in signal list.
func NewKeywordJudge() *KeywordJudge {
	return &KeywordJudge{Signals: scamSignals}
}

// Judge implements Judge.
func (k *KeywordJudge) Judge(_ context.Context, input string) (string, error) {
	text := strings.ToLower(norm.NFC.String(input))
	for _, signal := range k.Signals {
		if strings.Contains(text, signal) {
			return llm.VerdictScam + " The description mentions \"" + signal + "\", a common scam pattern.", nil
		}
	}
	return llm.VerdictNotScam, nil
}
