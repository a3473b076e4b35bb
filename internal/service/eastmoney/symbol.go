package eastmoney

import (
	"errors"
	"strings"
	"unicode"

	"FundFlow/internal/domain/models"
	"FundFlow/pkg/logger"
)

// ErrInvalidCode is returned when a ticker carries no digits.
var ErrInvalidCode = errors.New("invalid stock code")

const codeLength = 6

var marketPrefixes = []struct {
	prefix string
	market models.Market
}{
	{"60", models.MarketSH}, {"68", models.MarketSH}, {"90", models.MarketSH},
	{"00", models.MarketSZ}, {"30", models.MarketSZ}, {"20", models.MarketSZ},
	{"43", models.MarketBJ}, {"83", models.MarketBJ}, {"87", models.MarketBJ}, {"88", models.MarketBJ},
}

// NormalizeCode keeps the digits of raw and pads or truncates them to six.
func NormalizeCode(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", ErrInvalidCode
	}
	if len(digits) > codeLength {
		return digits[:codeLength], nil
	}
	return strings.Repeat("0", codeLength-len(digits)) + digits, nil
}

// DetectMarket maps a normalized code to its exchange. The second result is
// false when the code matched no known prefix and the market was guessed.
func DetectMarket(code string) (models.Market, bool) {
	for _, p := range marketPrefixes {
		if strings.HasPrefix(code, p.prefix) {
			return p.market, true
		}
	}
	if code != "" {
		switch code[0] {
		case '6':
			return models.MarketSH, true
		case '0', '3':
			return models.MarketSZ, true
		}
	}
	return models.MarketSZ, false
}

// ResolveStock normalizes raw and detects its market.
func ResolveStock(raw string, log *logger.Logger) (models.StockInfo, error) {
	code, err := NormalizeCode(raw)
	if err != nil {
		return models.StockInfo{}, err
	}
	market, known := DetectMarket(code)
	if !known && log != nil {
		log.Warn("unknown code prefix, assuming shenzhen", logger.String("code", code))
	}
	return models.NewStockInfo(code, market), nil
}

// secID is the upstream security id: 1.<code> for Shanghai, 0.<code> otherwise.
func secID(s models.StockInfo) string {
	if s.Market == models.MarketSH {
		return "1." + s.Code
	}
	return "0." + s.Code
}
