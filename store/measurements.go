package store

import (
	"context"
	"database/sql"
	"time"
)

type (
	// Measurement fields are optional, not every station reports every metric
	Measurement struct {
		ID          int64
		StationID   int64
		RecordedAt  time.Time
		Temperature *float64
		Humidity    *float64
		Pressure    *float64
	}
)

// Measurements returns every reading of a station, oldest first
func (c Conn) Measurements(ctx context.Context, stationID int64) ([]Measurement, error) {
	rows, err := c.q.QueryContext(ctx, `select measurement_id, station_id, recorded_at, temperature, humidity, pressure
		from measurements where station_id = ? order by recorded_at asc, measurement_id asc`, stationID)
	if err != nil {
		return nil, classify("list measurements", err)
	}
	defer rows.Close()
	var out []Measurement
	for rows.Next() {
		var m Measurement
		var ts int64
		var temp, hum, press sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.StationID, &ts, &temp, &hum, &press); err != nil {
			return nil, classify("list measurements", err)
		}
		m.RecordedAt = time.Unix(0, ts).UTC()
		m.Temperature = nullable(temp)
		m.Humidity = nullable(hum)
		m.Pressure = nullable(press)
		out = append(out, m)
	}
	return out, classify("list measurements", rows.Err())
}

// RecordMeasurement stores one reading. Ingestion lives outside this
// service, this exists for tooling and tests.
func (c Conn) RecordMeasurement(ctx context.Context, m Measurement) (int64, error) {
	var id int64
	err := c.q.QueryRowContext(ctx, `insert into measurements(station_id, recorded_at, temperature, humidity, pressure)
		values (?, ?, ?, ?, ?) returning measurement_id`,
		m.StationID, m.RecordedAt.UnixNano(), m.Temperature, m.Humidity, m.Pressure).Scan(&id)
	if err != nil {
		return 0, classify("record measurement", err)
	}
	return id, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
