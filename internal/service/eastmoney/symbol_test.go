package eastmoney

import (
	"testing"

	"FundFlow/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCode(t *testing.T) {
	cases := map[string]string{
		"600519":    "600519",
		"sh600519":  "600519",
		"600519.SH": "600519",
		"1":         "000001",
		" 2 ":       "000002",
		"12345678":  "123456",
	}
	for in, want := range cases {
		got, err := NormalizeCode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNormalizeCodeInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "SH.", "   "} {
		_, err := NormalizeCode(in)
		assert.ErrorIs(t, err, ErrInvalidCode, in)
	}
}

func TestDetectMarket(t *testing.T) {
	cases := []struct {
		code   string
		market models.Market
		known  bool
	}{
		{"600519", models.MarketSH, true},
		{"688981", models.MarketSH, true},
		{"900901", models.MarketSH, true},
		{"000001", models.MarketSZ, true},
		{"300750", models.MarketSZ, true},
		{"200002", models.MarketSZ, true},
		{"430047", models.MarketBJ, true},
		{"830799", models.MarketBJ, true},
		{"871981", models.MarketBJ, true},
		{"889999", models.MarketBJ, true},
		{"610000", models.MarketSH, true},
		{"010000", models.MarketSZ, true},
		{"510300", models.MarketSZ, false},
	}
	for _, tc := range cases {
		m, known := DetectMarket(tc.code)
		assert.Equal(t, tc.market, m, tc.code)
		assert.Equal(t, tc.known, known, tc.code)
	}
}

func TestResolveStock(t *testing.T) {
	s, err := ResolveStock("sh600519", nil)
	require.NoError(t, err)
	assert.Equal(t, "600519", s.Code)
	assert.Equal(t, models.MarketSH, s.Market)
	assert.Equal(t, "600519.SH", s.FullCode)
	assert.Equal(t, "1.600519", secID(s))

	s, err = ResolveStock("430047", nil)
	require.NoError(t, err)
	assert.Equal(t, "430047.BJ", s.FullCode)
	assert.Equal(t, "0.430047", secID(s))

	_, err = ResolveStock("xyz", nil)
	assert.ErrorIs(t, err, ErrInvalidCode)
}
