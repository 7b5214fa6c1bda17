package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func timePtrToPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}

	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func pgTimestamptzToTimePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}

	t := ts.Time

	return &t
}

func textToPg(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
