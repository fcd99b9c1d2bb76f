package engine

import (
	"cloud.google.com/go/civil"

	"github.com/followledger/followledger/internal/models"
	"github.com/followledger/followledger/internal/utils"
)

// DefaultStartMonth is where the monthly series begins unless configured.
var DefaultStartMonth = civil.Date{Year: 2024, Month: 8, Day: 1}

// DefaultWindow spans from start to the first day of the month after the
// clock's current month, so the series always closes on the upcoming month
// boundary.
func DefaultWindow(clock utils.Clock, start civil.Date) models.Window {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if start.IsZero() {
		start = DefaultStartMonth
	}
	return models.Window{
		Start: utils.StartOfMonth(start),
		End:   utils.NextMonthStart(clock.Now()),
	}
}
