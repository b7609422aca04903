package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/andrebq/weatherbox/auth"
	authapi "github.com/andrebq/weatherbox/auth/api"
	"github.com/andrebq/weatherbox/internal/logutil"
	"github.com/andrebq/weatherbox/store"
)

type (
	InvalidInput struct {
		Field  string
		Reason string
	}
)

func (i InvalidInput) Error() string {
	return fmt.Sprintf("invalid %v: %v", i.Field, i.Reason)
}

// fail writes the response matching err, anything unexpected becomes a
// 500 with a generic message and the full error goes to the log
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ii  InvalidInput
		ir  auth.InvalidRegistration
		dup store.Duplicate
		nf  store.NotFound
	)
	if status, ok := authapi.Status(err); ok {
		authapi.WriteError(w, status, err.Error())
		return
	}
	switch {
	case errors.As(err, &ii):
		authapi.WriteError(w, http.StatusBadRequest, ii.Error())
	case errors.As(err, &ir):
		authapi.WriteError(w, http.StatusBadRequest, ir.Error())
	case errors.As(err, &dup):
		authapi.WriteError(w, http.StatusConflict, dup.Error())
	case errors.As(err, &nf):
		authapi.WriteError(w, http.StatusNotFound, nf.Error())
	default:
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).AnErr("cause", rootCause(err)).Msg("Request failed")
		authapi.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
