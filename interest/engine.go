// Package interest keeps the user x station interest relation total.
//
// Every user has exactly one interest row for every station. The relation
// grows on both axes (a station is added, a user registers) and each growth
// is a single transaction: the new anchor row and its fan-out are committed
// together or not at all.
//
// The store opens transactions with BEGIN IMMEDIATE, so two growth
// transactions never overlap: a user registered while a station is being
// created either sees the station (and gets its row) or is seen by it.
// Reconcile exists to detect (and repair) any pair that still slips
// through, for example if the database is ever written by other tools.
package interest

import (
	"context"
	"errors"
	"time"

	"github.com/andrebq/weatherbox/internal/logutil"
	"github.com/andrebq/weatherbox/store"
)

type (
	Engine struct {
		tape *store.Control

		// called after the anchor row is written and before the fan-out
		beforeFanout func(ctx context.Context) error
	}

	Preference struct {
		StationID int64
		Preferred bool
	}

	// DisplayChange holds the display flags sent by the client, nil
	// flags keep the value currently stored
	DisplayChange struct {
		Temperature *bool
		Humidity    *bool
		Pressure    *bool
	}

	Report struct {
		Before   store.Totality
		After    store.Totality
		Repaired int64
	}
)

func New(tape *store.Control) *Engine {
	return &Engine{tape: tape}
}

// OnStationCreated inserts the station and one non-preferred interest row
// for every existing user.
func (e *Engine) OnStationCreated(ctx context.Context, st store.Station) (int64, error) {
	var id int64
	var fanout int
	err := e.tape.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var err error
		id, err = tx.InsertStation(ctx, st)
		if err != nil {
			return err
		}
		if err := e.hook(ctx); err != nil {
			return err
		}
		users, err := tx.UserIDs(ctx)
		if err != nil {
			return err
		}
		rows := make([]store.Interest, 0, len(users))
		for _, uid := range users {
			rows = append(rows, store.Interest{UserID: uid, StationID: id})
		}
		fanout = len(rows)
		return tx.InsertInterests(ctx, rows)
	})
	if err != nil {
		return 0, failed("station created", err)
	}
	log := logutil.GetOrDefault(ctx)
	log.Info().Int64("station.id", id).Str("station.name", st.Name).Int("fanout", fanout).Msg("Station created")
	return id, nil
}

// OnUserRegistered inserts the user and one non-preferred interest row
// for every existing station.
func (e *Engine) OnUserRegistered(ctx context.Context, u store.User) (int64, error) {
	var id int64
	var fanout int
	err := e.tape.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var err error
		id, err = tx.InsertUser(ctx, u)
		if err != nil {
			return err
		}
		if err := e.hook(ctx); err != nil {
			return err
		}
		stations, err := tx.StationIDs(ctx)
		if err != nil {
			return err
		}
		rows := make([]store.Interest, 0, len(stations))
		for _, sid := range stations {
			rows = append(rows, store.Interest{UserID: id, StationID: sid})
		}
		fanout = len(rows)
		return tx.InsertInterests(ctx, rows)
	})
	if err != nil {
		return 0, failed("user registered", err)
	}
	log := logutil.GetOrDefault(ctx)
	log.Info().Int64("user.id", id).Str("user.name", u.Username).Int("fanout", fanout).Msg("User registered")
	return id, nil
}

// OnStationRemoved deletes the station identified by name together
// with its interest rows
func (e *Engine) OnStationRemoved(ctx context.Context, name string) (store.Station, error) {
	var st store.Station
	err := e.tape.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var err error
		st, err = tx.StationByName(ctx, name)
		if err != nil {
			return err
		}
		return tx.DeleteStation(ctx, st.ID)
	})
	if err != nil {
		return store.Station{}, failed("station removed", err)
	}
	log := logutil.GetOrDefault(ctx)
	log.Info().Int64("station.id", st.ID).Str("station.name", st.Name).Msg("Station removed")
	return st, nil
}

func (e *Engine) SetPreference(ctx context.Context, userID, stationID int64, preferred bool) error {
	err := e.tape.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		return tx.SetPreferred(ctx, userID, stationID, preferred)
	})
	if err != nil {
		return failed("set preference", err)
	}
	return nil
}

// ApplyUpload stores the display settings and the given preference flags
// as a single unit
func (e *Engine) ApplyUpload(ctx context.Context, userID int64, change DisplayChange, prefs []Preference) error {
	err := e.tape.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		u, err := tx.UserByID(ctx, userID)
		if err != nil {
			return err
		}
		display := store.Display{
			Temperature: valueOr(change.Temperature, u.WantsTemperature),
			Humidity:    valueOr(change.Humidity, u.WantsHumidity),
			Pressure:    valueOr(change.Pressure, u.WantsPressure),
		}
		if err := tx.UpdateDisplay(ctx, userID, display); err != nil {
			return err
		}
		for _, p := range prefs {
			if err := tx.SetPreferred(ctx, userID, p.StationID, p.Preferred); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return failed("upload preferences", err)
	}
	return nil
}

func (e *Engine) ListPreferred(ctx context.Context, userID int64) ([]store.Interest, error) {
	return e.tape.Interests(ctx, userID)
}

// Reconcile counts both axes of the relation and inserts any missing row
func (e *Engine) Reconcile(ctx context.Context) (Report, error) {
	var r Report
	err := e.tape.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var err error
		r.Before, err = tx.Totality(ctx)
		if err != nil {
			return err
		}
		if r.Before.Complete() {
			r.After = r.Before
			return nil
		}
		r.Repaired, err = tx.FillMissingInterests(ctx)
		if err != nil {
			return err
		}
		r.After, err = tx.Totality(ctx)
		return err
	})
	if err != nil {
		return Report{}, failed("reconcile", err)
	}
	if r.Repaired > 0 {
		log := logutil.GetOrDefault(ctx)
		log.Warn().
			Int64("users", r.After.Users).
			Int64("stations", r.After.Stations).
			Int64("repaired", r.Repaired).
			Msg("Interest relation was incomplete, missing rows were inserted")
	}
	return r, nil
}

// Sweep runs Reconcile every interval until ctx is done
func (e *Engine) Sweep(ctx context.Context, interval time.Duration) {
	log := logutil.GetOrDefault(ctx).With().Str("component", "reconcile").Logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := e.Reconcile(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Reconciliation sweep failed")
			}
		}
	}
}

func valueOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func (e *Engine) hook(ctx context.Context) error {
	if e.beforeFanout == nil {
		return nil
	}
	return e.beforeFanout(ctx)
}

// failed keeps errors the caller can act upon (not found, duplicates)
// and turns everything else into TransactionFailed
func failed(op string, err error) error {
	var (
		nf  store.NotFound
		dup store.Duplicate
	)
	if errors.As(err, &nf) || errors.As(err, &dup) {
		return err
	}
	return TransactionFailed{Op: op, cause: err}
}
