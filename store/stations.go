package store

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

type (
	Station struct {
		ID      int64
		Name    string
		Country string
		City    string
		Address string
		Lat     float64
		Long    float64
	}
)

const stationColumns = `station_id, name, country, city, address, lat, long`

func scanStation(s scanner) (Station, error) {
	var st Station
	err := s.Scan(&st.ID, &st.Name, &st.Country, &st.City, &st.Address, &st.Lat, &st.Long)
	return st, err
}

func nameHash(name string) int64 {
	return int64(xxhash.Sum64String(name))
}

func (c Conn) ListStations(ctx context.Context) ([]Station, error) {
	rows, err := c.q.QueryContext(ctx, `select `+stationColumns+` from stations order by station_id asc`)
	if err != nil {
		return nil, classify("list stations", err)
	}
	defer rows.Close()
	var out []Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, classify("list stations", err)
		}
		out = append(out, st)
	}
	return out, classify("list stations", rows.Err())
}

// StationByName looks the station up through the name hash, rows sharing
// a hash are told apart by comparing the names
func (c Conn) StationByName(ctx context.Context, name string) (Station, error) {
	rows, err := c.q.QueryContext(ctx, `select `+stationColumns+` from stations indexed by idx_stations_name_hash64 where name_hash64 = ?`, nameHash(name))
	if err != nil {
		return Station{}, classify("lookup station", err)
	}
	defer rows.Close()
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return Station{}, classify("lookup station", err)
		}
		if st.Name == name {
			return st, nil
		}
	}
	if err := rows.Err(); err != nil {
		return Station{}, classify("lookup station", err)
	}
	return Station{}, NotFound{Entity: "station", Key: name}
}

func (c Conn) StationByID(ctx context.Context, id int64) (Station, error) {
	st, err := scanStation(c.q.QueryRowContext(ctx, `select `+stationColumns+` from stations where station_id = ?`, id))
	if err != nil {
		return Station{}, notFoundOr("lookup station", err, NotFound{Entity: "station", Key: strconv.FormatInt(id, 10)})
	}
	return st, nil
}

// StationIDs returns the id of every station, ordered
func (c Conn) StationIDs(ctx context.Context) ([]int64, error) {
	return c.ids(ctx, "list station ids", `select station_id from stations order by station_id asc`)
}

func (c Conn) CountStations(ctx context.Context) (int64, error) {
	return c.count(ctx, "count stations", `select count(*) from stations`)
}

// InsertStation is only available inside a transaction, a station must never
// be visible without its interest rows.
func (t *Tx) InsertStation(ctx context.Context, st Station) (int64, error) {
	var id int64
	err := t.q.QueryRowContext(ctx, `insert into stations(name, name_hash64, country, city, address, lat, long)
		values (?, ?, ?, ?, ?, ?, ?) returning station_id`,
		st.Name, nameHash(st.Name), st.Country, st.City, st.Address, st.Lat, st.Long).Scan(&id)
	if err != nil {
		return 0, classify("insert station", err)
	}
	return id, nil
}

// DeleteStation removes the station and every interest row pointing to it.
// Measurements go away through the foreign key cascade.
func (t *Tx) DeleteStation(ctx context.Context, id int64) error {
	_, err := t.q.ExecContext(ctx, `delete from interests where station_id = ?`, id)
	if err != nil {
		return classify("delete station interests", err)
	}
	res, err := t.q.ExecContext(ctx, `delete from stations where station_id = ?`, id)
	if err != nil {
		return classify("delete station", err)
	}
	return expectAffected("delete station", res, NotFound{Entity: "station", Key: strconv.FormatInt(id, 10)})
}

func (c Conn) ids(ctx context.Context, op, query string, args ...interface{}) ([]int64, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, classify(op, err)
		}
		out = append(out, id)
	}
	return out, classify(op, rows.Err())
}

func (c Conn) count(ctx context.Context, op, query string) (int64, error) {
	var n int64
	err := c.q.QueryRowContext(ctx, query).Scan(&n)
	if err != nil {
		return 0, classify(op, err)
	}
	return n, nil
}

func expectAffected(op string, res sql.Result, nf NotFound) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return nf
	}
	return nil
}
