package fundflow

import (
	"fmt"

	"FundFlow/internal/domain/models"
)

// Config drives the processing pipeline. Build it once at start-up and pass it in.
type Config struct {
	DefaultDays int
	Windows     []int
	Precision   int32
	Divisor     float64
}

// DefaultConfig matches the data source conventions: 3/5/10-day averages,
// amounts in units of 1e8 yuan, two decimals, a 30-day window.
func DefaultConfig() Config {
	return Config{
		DefaultDays: 30,
		Windows:     []int{3, 5, 10},
		Precision:   2,
		Divisor:     1e8,
	}
}

// Validate checks the windows are supported and the numbers are usable.
func (c Config) Validate() error {
	if c.DefaultDays <= 0 {
		return fmt.Errorf("default days must be positive, got %d", c.DefaultDays)
	}
	if c.Divisor == 0 {
		return fmt.Errorf("divisor must be non-zero")
	}
	if c.Precision < 0 {
		return fmt.Errorf("precision must be >= 0, got %d", c.Precision)
	}
	for _, w := range c.Windows {
		if _, ok := models.WindowIndex(w); !ok {
			return fmt.Errorf("unsupported moving average window %d", w)
		}
	}
	return nil
}
