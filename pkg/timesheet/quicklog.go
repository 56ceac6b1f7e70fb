package timesheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// WashoutUnitHours is the fixed duration of one dump washout
	WashoutUnitHours = 0.5

	// ShopUnitHours is the fixed duration of one shop time unit
	ShopUnitHours = 0.25
)

// QuickLog is an accumulable fixed duration category (dump washout, shop
// time). Earlier versions of the system persisted these as formatted display
// strings and parsed them back with a regex; the structured pair is now the
// source of truth and the string is derived for display only.
type QuickLog struct {
	Qty       int     `json:"qty" bson:"qty"`
	UnitHours float64 `json:"unitHours" bson:"unitHours"`
}

// Hours is the accumulated duration of the quick log
func (q *QuickLog) Hours() float64 {
	if q == nil || q.Qty <= 0 {
		return 0
	}

	return float64(q.Qty) * q.UnitHours
}

// Increment adds one unit
func (q *QuickLog) Increment() {
	q.Qty++
}

// String renders the legacy display encoding, e.g. "1.00 hrs (2 qty)"
func (q *QuickLog) String() string {
	return fmt.Sprintf("%.2f hrs (%d qty)", q.Hours(), q.Qty)
}

var quickLogPattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?) hrs \(([0-9]+) qty\)$`)

// ParseQuickLog reads the legacy string encodings still present on old
// records: the formatted "X hrs (N qty)" string, or a bare "true"/"yes" flag
// meaning a single unit of the given duration.
func ParseQuickLog(raw string, unitHours float64) (*QuickLog, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}

	switch strings.ToLower(trimmed) {
	case "true", "yes":
		return &QuickLog{Qty: 1, UnitHours: unitHours}, true
	}

	matches := quickLogPattern.FindStringSubmatch(trimmed)
	if matches == nil {
		return nil, false
	}

	hours, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return nil, false
	}

	qty, err := strconv.Atoi(matches[2])
	if err != nil || qty <= 0 {
		return nil, false
	}

	return &QuickLog{Qty: qty, UnitHours: hours / float64(qty)}, true
}
