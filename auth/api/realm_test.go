package api

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andrebq/weatherbox/auth"
	"github.com/andrebq/weatherbox/internal/testutil"
	"github.com/andrebq/weatherbox/store"
	"github.com/julienschmidt/httprouter"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"
)

func TestGuard(t *testing.T) {
	ctx := context.Background()
	tape, cleanup := testutil.AcquireStore(ctx, t, "realm")
	defer cleanup()
	ss, err := auth.InMemorySessionStore(time.Minute)
	require.NoError(t, err)
	defer ss.Close()
	h, err := auth.NewHasher(auth.MinCost)
	require.NoError(t, err)
	m := auth.NewManager(tape, ss, h)
	realm := NewRealm(m, "weatherbox_session", false, time.Minute)

	var uid int64
	require.NoError(t, tape.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		uid, err = tx.InsertUser(ctx, store.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"})
		return err
	}))
	tk, err := m.EstablishSession(ctx, auth.Identity{UserID: uid, Username: "alice"})
	require.NoError(t, err)

	var count uint32
	router := httprouter.New()
	router.GET("/self", realm.Guard(auth.GetSelf, func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		atomic.AddUint32(&count, 1)
		p := Principal(r.Context())
		fmt.Fprintf(w, "%v:%v", p.Username, SessionToken(r.Context()) == tk)
	}))
	router.GET("/stations", realm.Guard(auth.ListStations, func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		atomic.AddUint32(&count, 1)
		fmt.Fprintf(w, "anonymous:%v", Principal(r.Context()) == nil)
	}))
	router.GET("/admin", realm.Guard(auth.ListUsers, func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		atomic.AddUint32(&count, 1)
	}))

	apitest.New().Handler(router).Get("/self").Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.error", "authentication required")).
		End()
	apitest.New().Handler(router).Get("/self").Header("Authorization", "Bearer not-a-token").Expect(t).
		Status(http.StatusUnauthorized).End()
	apitest.New().Handler(router).Get("/self").Header("Authorization", fmt.Sprintf("Bearer %v", tk)).Expect(t).
		Status(http.StatusOK).Body("alice:true").End()
	apitest.New().Handler(router).Get("/self").Cookie("weatherbox_session", string(tk)).Expect(t).
		Status(http.StatusOK).Body("alice:true").End()
	apitest.New().Handler(router).Get("/stations").Cookie("weatherbox_session", "stale").Expect(t).
		Status(http.StatusOK).Body("anonymous:true").End()
	apitest.New().Handler(router).Get("/admin").Cookie("weatherbox_session", string(tk)).Expect(t).
		Status(http.StatusForbidden).End()

	require.NoError(t, tape.SetBlocked(ctx, uid, true))
	apitest.New().Handler(router).Get("/stations").Cookie("weatherbox_session", string(tk)).Expect(t).
		Status(http.StatusForbidden).
		Assert(jsonpath.Equal("$.error", "account alice is blocked")).
		End()

	require.Equal(t, uint32(3), atomic.LoadUint32(&count))
}

func TestStatus(t *testing.T) {
	for _, tc := range []struct {
		err    error
		status int
		known  bool
	}{
		{auth.InvalidCredentials{}, http.StatusUnauthorized, true},
		{auth.Unauthenticated{}, http.StatusUnauthorized, true},
		{auth.IdentityNotFound{UserID: 1}, http.StatusUnauthorized, true},
		{auth.AccountBlocked{}, http.StatusForbidden, true},
		{auth.Forbidden{Action: auth.AddStation}, http.StatusForbidden, true},
		{fmt.Errorf("wrapped, cause %w", auth.Forbidden{}), http.StatusForbidden, true},
		{store.NotFound{Entity: "user"}, http.StatusInternalServerError, false},
	} {
		status, known := Status(tc.err)
		if status != tc.status || known != tc.known {
			t.Errorf("Status(%v) should be (%v, %v) got (%v, %v)", tc.err, tc.status, tc.known, status, known)
		}
	}
}
