package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andrebq/weatherbox/auth"
	authapi "github.com/andrebq/weatherbox/auth/api"
	"github.com/andrebq/weatherbox/store"
	"github.com/julienschmidt/httprouter"
)

type (
	stationView struct {
		ID      int64   `json:"id"`
		Name    string  `json:"stationName"`
		Country string  `json:"country"`
		City    string  `json:"city"`
		Address string  `json:"address"`
		Lat     float64 `json:"lat"`
		Long    float64 `json:"long"`
	}

	removeStationRequest struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}

	measurementRequest struct {
		ID int64 `json:"id"`
	}

	measurementView struct {
		ID          int64    `json:"id"`
		StationID   int64    `json:"stationId"`
		RecordedAt  string   `json:"recordedAt"`
		Temperature *float64 `json:"temperature"`
		Humidity    *float64 `json:"humidity"`
		Pressure    *float64 `json:"pressure"`
	}
)

func viewStation(s store.Station) stationView {
	return stationView{ID: s.ID, Name: s.Name, Country: s.Country, City: s.City, Address: s.Address, Lat: s.Lat, Long: s.Long}
}

func (v *stationView) validate() error {
	v.Name = strings.TrimSpace(v.Name)
	switch {
	case v.Name == "":
		return InvalidInput{Field: "stationName", Reason: "required"}
	case v.Lat < -90 || v.Lat > 90:
		return InvalidInput{Field: "lat", Reason: "must be between -90 and 90"}
	case v.Long < -180 || v.Long > 180:
		return InvalidInput{Field: "long", Reason: "must be between -180 and 180"}
	}
	return nil
}

func (h *handlers) listStations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stations, err := h.Store.ListStations(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if len(stations) == 0 {
		authapi.WriteError(w, http.StatusNotFound, "no stations found")
		return
	}
	out := make([]stationView, 0, len(stations))
	for _, s := range stations {
		out = append(out, viewStation(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) addStation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req stationView
	if err := readJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		fail(w, r, err)
		return
	}
	id, err := h.Engine.OnStationCreated(r.Context(), store.Station{
		Name:    req.Name,
		Country: req.Country,
		City:    req.City,
		Address: req.Address,
		Lat:     req.Lat,
		Long:    req.Long,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		ID int64 `json:"id"`
	}{ID: id})
}

func (h *handlers) removeStation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req removeStationRequest
	if err := readJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	ctx := r.Context()
	uid, err := subject(ctx, req.ID, auth.RemoveStation)
	if err != nil {
		fail(w, r, err)
		return
	}
	if authapi.StepUpRequired(ctx) {
		if err := h.Realm.Manager().VerifyPassword(ctx, uid, req.Password); err != nil {
			fail(w, r, err)
			return
		}
	}
	if strings.TrimSpace(req.Name) == "" {
		fail(w, r, InvalidInput{Field: "name", Reason: "required"})
		return
	}
	if _, err := h.Engine.OnStationRemoved(ctx, req.Name); err != nil {
		fail(w, r, err)
		return
	}
	writeMessage(w, "station removed")
}

func (h *handlers) measurements(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req measurementRequest
	if err := readJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	ctx := r.Context()
	if _, err := h.Store.StationByID(ctx, req.ID); err != nil {
		fail(w, r, err)
		return
	}
	ms, err := h.Store.Measurements(ctx, req.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]measurementView, 0, len(ms))
	for _, m := range ms {
		out = append(out, measurementView{
			ID:          m.ID,
			StationID:   m.StationID,
			RecordedAt:  m.RecordedAt.UTC().Format(time.RFC3339),
			Temperature: m.Temperature,
			Humidity:    m.Humidity,
			Pressure:    m.Pressure,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
