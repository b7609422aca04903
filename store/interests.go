package store

import (
	"context"
	"fmt"
	"strings"
)

type (
	Interest struct {
		UserID    int64
		StationID int64
		Preferred bool
	}

	// Totality reports the size of both sides of the user x station
	// relation and how many interest rows actually exist
	Totality struct {
		Users     int64
		Stations  int64
		Interests int64
	}
)

// 3 parameters per row, keeps each statement well below the
// sqlite host parameter limit
const interestBatch = 250

// Complete reports whether every user x station pair has its row
func (t Totality) Complete() bool {
	return t.Interests == t.Users*t.Stations
}

func (t Totality) Missing() int64 {
	return t.Users*t.Stations - t.Interests
}

// Interests lists the interest rows of a user ordered by station
func (c Conn) Interests(ctx context.Context, userID int64) ([]Interest, error) {
	rows, err := c.q.QueryContext(ctx, `select user_id, station_id, preferred from interests where user_id = ? order by station_id asc`, userID)
	if err != nil {
		return nil, classify("list interests", err)
	}
	defer rows.Close()
	var out []Interest
	for rows.Next() {
		var i Interest
		if err := rows.Scan(&i.UserID, &i.StationID, &i.Preferred); err != nil {
			return nil, classify("list interests", err)
		}
		out = append(out, i)
	}
	return out, classify("list interests", rows.Err())
}

func (c Conn) Totality(ctx context.Context) (Totality, error) {
	var t Totality
	err := c.q.QueryRowContext(ctx, `select
		(select count(*) from users),
		(select count(*) from stations),
		(select count(*) from interests)`).Scan(&t.Users, &t.Stations, &t.Interests)
	if err != nil {
		return Totality{}, classify("count interests", err)
	}
	return t, nil
}

// SetPreferred updates one existing interest row
func (t *Tx) SetPreferred(ctx context.Context, userID, stationID int64, preferred bool) error {
	res, err := t.q.ExecContext(ctx, `update interests set preferred = ? where user_id = ? and station_id = ?`, preferred, userID, stationID)
	if err != nil {
		return classify("set preferred", err)
	}
	return expectAffected("set preferred", res, NotFound{Entity: "interest", Key: fmt.Sprintf("%v/%v", userID, stationID)})
}

// InsertInterests writes all rows using multi-row inserts
func (t *Tx) InsertInterests(ctx context.Context, rows []Interest) error {
	for start := 0; start < len(rows); start += interestBatch {
		end := start + interestBatch
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		var sb strings.Builder
		sb.WriteString(`insert into interests(user_id, station_id, preferred) values `)
		args := make([]interface{}, 0, len(batch)*3)
		for i, r := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?)")
			args = append(args, r.UserID, r.StationID, r.Preferred)
		}
		res, err := t.q.ExecContext(ctx, sb.String(), args...)
		if err != nil {
			return classify("insert interests", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return classify("insert interests", err)
		}
		if n != int64(len(batch)) {
			return StoreUnavailable{Op: "insert interests", cause: fmt.Errorf("expecting %v rows got %v", len(batch), n)}
		}
	}
	return nil
}

// FillMissingInterests inserts a non-preferred row for every pair
// that does not have one and returns how many rows were written.
func (t *Tx) FillMissingInterests(ctx context.Context) (int64, error) {
	res, err := t.q.ExecContext(ctx, `insert into interests(user_id, station_id, preferred)
		select u.user_id, s.station_id, 0 from users u cross join stations s
		where not exists (select 1 from interests i where i.user_id = u.user_id and i.station_id = s.station_id)`)
	if err != nil {
		return 0, classify("fill interests", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("fill interests", err)
	}
	return n, nil
}
