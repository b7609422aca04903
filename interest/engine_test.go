package interest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/andrebq/weatherbox/internal/testutil"
	"github.com/andrebq/weatherbox/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterThenAddStation(t *testing.T) {
	ctx := context.Background()
	tape, cleanup := testutil.AcquireStore(ctx, t, "engine")
	defer cleanup()
	e := New(tape)

	alice, err := e.OnUserRegistered(ctx, user("alice"))
	require.NoError(t, err)
	rows, err := e.ListPreferred(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, rows, "first user without stations must not have interest rows")

	s1, err := e.OnStationCreated(ctx, station("S1"))
	require.NoError(t, err)
	rows, err = e.ListPreferred(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []store.Interest{{UserID: alice, StationID: s1, Preferred: false}}, rows)
	assertTotal(ctx, t, tape)
}

func TestFirstStationWithoutUsers(t *testing.T) {
	ctx := context.Background()
	tape, cleanup := testutil.AcquireStore(ctx, t, "engine")
	defer cleanup()
	e := New(tape)

	_, err := e.OnStationCreated(ctx, station("S1"))
	require.NoError(t, err)
	tot, err := tape.Totality(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Totality{Users: 0, Stations: 1, Interests: 0}, tot)

	bob, err := e.OnUserRegistered(ctx, user("bob"))
	require.NoError(t, err)
	rows, err := e.ListPreferred(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assertTotal(ctx, t, tape)
}

func TestTotalityAcrossGrowth(t *testing.T) {
	ctx := context.Background()
	tape, cleanup := testutil.AcquireStore(ctx, t, "engine")
	defer cleanup()
	e := New(tape)

	for i := 0; i < 5; i++ {
		_, err := e.OnUserRegistered(ctx, user(fmt.Sprintf("user%v", i)))
		require.NoError(t, err)
		_, err = e.OnStationCreated(ctx, station(fmt.Sprintf("station%v", i)))
		require.NoError(t, err)
		assertTotal(ctx, t, tape)
	}
	tot, err := tape.Totality(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(25), tot.Interests)
}

func TestFailureBeforeFanoutRollsBackStation(t *testing.T) {
	ctx := context.Background()
	tape, cleanup := testutil.AcquireStore(ctx, t, "engine")
	defer cleanup()
	e := New(tape)
	_, err := e.OnUserRegistered(ctx, user("alice"))
	require.NoError(t, err)

	boom := errors.New("disk full")
	e.beforeFanout = func(context.Context) error { return boom }
	_, err = e.OnStationCreated(ctx, station("S1"))
	var tf TransactionFailed
	require.True(t, errors.As(err, &tf), "expecting TransactionFailed got %v", err)
	assert.ErrorIs(t, err, boom)

	stations, err := tape.ListStations(ctx)
	require.NoError(t, err)
	assert.Empty(t, stations)

	_, err = e.OnUserRegistered(ctx, user("bob"))
	require.True(t, errors.As(err, &tf))
	_, err = tape.UserByName(ctx, "bob")
	assert.Equal(t, store.NotFound{Entity: "user", Key: "bob"}, err)
	assertTotal(ctx, t, tape)
}

func TestDuplicatesAreNotTransactionFailures(t *testing.T) {
	ctx := context.Background()
	tape, cleanup := testutil.AcquireStore(ctx, t, "engine")
	defer cleanup()
	e := New(tape)

	_, err := e.OnStationCreated(ctx, station("S1"))
	require.NoError(t, err)
	_, err = e.OnStationCreated(ctx, station("S1"))
	assert.Equal(t, store.Duplicate{Entity: "station", Field: "name"}, err)

	_, err = e.OnUserRegistered(ctx, user("alice"))
	require.NoError(t, err)

	sameName := user("alice")
	sameName.Email = "alice.other@example.com"
	_, err = e.OnUserRegistered(ctx, sameName)
	assert.Equal(t, store.Duplicate{Entity: "user", Field: "username"}, err)

	sameEmail := user("bob")
	sameEmail.Email = "alice@example.com"
	_, err = e.OnUserRegistered(ctx, sameEmail)
	assert.Equal(t, store.Duplicate{Entity: "user", Field: "email"}, err)

	tot, err := tape.Totality(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Totality{Users: 1, Stations: 1, Interests: 1}, tot)
}

func TestSetPreferenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	tape, cleanup := testutil.AcquireStore(ctx, t, "engine")
	defer cleanup()
	e := New(tape)

	alice, err := e.OnUserRegistered(ctx, user("alice"))
	require.NoError(t, err)
	s1, err := e.OnStationCreated(ctx, station("S1"))
	require.NoError(t, err)
	s2, err := e.OnStationCreated(ctx, station("S2"))
	require.NoError(t, err)

	require.NoError(t, e.SetPreference(ctx, alice, s2, true))
	rows, err := e.ListPreferred(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []store.Interest{
		{UserID: alice, StationID: s1, Preferred: false},
		{UserID: alice, StationID: s2, Preferred: true},
	}, rows)

	err = e.SetPreference(ctx, alice, 999, true)
	assert.IsType(t, store.NotFound{}, err)
}

func TestApplyUploadIsAtomic(t *testing.T) {
	ctx := context.Background()
	tape, cleanup := testutil.AcquireStore(ctx, t, "engine")
	defer cleanup()
	e := New(tape)

	alice, err := e.OnUserRegistered(ctx, user("alice"))
	require.NoError(t, err)
	s1, err := e.OnStationCreated(ctx, station("S1"))
	require.NoError(t, err)

	err = e.ApplyUpload(ctx, alice, DisplayChange{Temperature: flag(false), Pressure: flag(false)},
		[]Preference{{StationID: s1, Preferred: true}, {StationID: 999, Preferred: true}})
	assert.IsType(t, store.NotFound{}, err)

	u, err := tape.UserByID(ctx, alice)
	require.NoError(t, err)
	assert.True(t, u.WantsTemperature, "display settings must be rolled back")
	rows, err := e.ListPreferred(ctx, alice)
	require.NoError(t, err)
	assert.False(t, rows[0].Preferred)

	err = e.ApplyUpload(ctx, alice, DisplayChange{Temperature: flag(false)}, []Preference{{StationID: s1, Preferred: true}})
	require.NoError(t, err)
	u, err = tape.UserByID(ctx, alice)
	require.NoError(t, err)
	assert.False(t, u.WantsTemperature)
	assert.True(t, u.WantsHumidity)
	assert.True(t, u.WantsPressure)
	rows, err = e.ListPreferred(ctx, alice)
	require.NoError(t, err)
	assert.True(t, rows[0].Preferred)

	err = e.ApplyUpload(ctx, 999, DisplayChange{}, nil)
	assert.Equal(t, store.NotFound{Entity: "user", Key: "999"}, err)
}

func TestApplyUploadKeepsUnsentFlags(t *testing.T) {
	ctx := context.Background()
	tape, cleanup := testutil.AcquireStore(ctx, t, "engine")
	defer cleanup()
	e := New(tape)

	alice, err := e.OnUserRegistered(ctx, user("alice"))
	require.NoError(t, err)

	// two clients holding the same stale view each change one flag
	require.NoError(t, e.ApplyUpload(ctx, alice, DisplayChange{Temperature: flag(false)}, nil))
	require.NoError(t, e.ApplyUpload(ctx, alice, DisplayChange{Pressure: flag(false)}, nil))

	u, err := tape.UserByID(ctx, alice)
	require.NoError(t, err)
	assert.False(t, u.WantsTemperature, "second upload must not restore the first one's flag")
	assert.True(t, u.WantsHumidity)
	assert.False(t, u.WantsPressure)

	var wg sync.WaitGroup
	for _, change := range []DisplayChange{{Temperature: flag(true)}, {Humidity: flag(false)}, {Pressure: flag(true)}} {
		wg.Add(1)
		go func(change DisplayChange) {
			defer wg.Done()
			assert.NoError(t, e.ApplyUpload(ctx, alice, change, nil))
		}(change)
	}
	wg.Wait()
	u, err = tape.UserByID(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, store.Display{Temperature: true, Humidity: false, Pressure: true},
		store.Display{Temperature: u.WantsTemperature, Humidity: u.WantsHumidity, Pressure: u.WantsPressure})
}

func TestStationRemoval(t *testing.T) {
	ctx := context.Background()
	tape, cleanup := testutil.AcquireStore(ctx, t, "engine")
	defer cleanup()
	e := New(tape)

	_, err := e.OnUserRegistered(ctx, user("alice"))
	require.NoError(t, err)
	_, err = e.OnStationCreated(ctx, station("S1"))
	require.NoError(t, err)
	_, err = e.OnStationCreated(ctx, station("S2"))
	require.NoError(t, err)

	st, err := e.OnStationRemoved(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "S1", st.Name)
	assertTotal(ctx, t, tape)

	_, err = e.OnStationRemoved(ctx, "S1")
	assert.Equal(t, store.NotFound{Entity: "station", Key: "S1"}, err)
}

func TestReconcileRepairsMissingRows(t *testing.T) {
	ctx := context.Background()
	tape, cleanup := testutil.AcquireStore(ctx, t, "engine")
	defer cleanup()
	e := New(tape)

	_, err := e.OnUserRegistered(ctx, user("alice"))
	require.NoError(t, err)
	_, err = e.OnStationCreated(ctx, station("S1"))
	require.NoError(t, err)

	// simulate a writer that bypassed the engine
	err = tape.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		_, err := tx.InsertStation(ctx, station("rogue"))
		return err
	})
	require.NoError(t, err)

	report, err := e.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Repaired)
	assert.False(t, report.Before.Complete())
	assert.True(t, report.After.Complete())

	report, err = e.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.Repaired)
}

func TestConcurrentGrowthKeepsTotality(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	tape, cleanup := testutil.AcquireStore(ctx, t, "engine")
	defer cleanup()
	e := New(tape)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := e.OnUserRegistered(ctx, user(fmt.Sprintf("user%v", i)))
			errs <- err
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := e.OnStationCreated(ctx, station(fmt.Sprintf("station%v", i)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assertTotal(ctx, t, tape)
	report, err := e.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.Repaired)
}

func assertTotal(ctx context.Context, t *testing.T, tape *store.Control) {
	t.Helper()
	tot, err := tape.Totality(ctx)
	require.NoError(t, err)
	assert.True(t, tot.Complete(), "interest relation is not total: %+v", tot)
}

func user(name string) store.User {
	return store.User{
		Username:         name,
		Email:            name + "@example.com",
		PasswordHash:     "not-a-real-hash",
		WantsTemperature: true,
		WantsHumidity:    true,
		WantsPressure:    true,
	}
}

func station(name string) store.Station {
	return store.Station{Name: name, Country: "PL", City: "Gdansk", Address: "ul. Dluga 1", Lat: 54.35, Long: 18.65}
}

func flag(v bool) *bool {
	return &v
}
