package api

import (
	"net/http"

	"github.com/andrebq/weatherbox/auth"
	"github.com/andrebq/weatherbox/interest"
	"github.com/julienschmidt/httprouter"
)

type (
	preferredRequest struct {
		ID int64 `json:"id"`
	}

	preferenceView struct {
		StationID int64 `json:"stationId"`
		Preferred bool  `json:"preferred"`
	}

	uploadRequest struct {
		ID          int64            `json:"id"`
		Temperature *bool            `json:"temperature"`
		Humidity    *bool            `json:"humidity"`
		Pressure    *bool            `json:"pressure"`
		StationList []preferenceView `json:"stationList"`
	}
)

func (h *handlers) preferredStations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req preferredRequest
	if err := readJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	uid, err := subject(r.Context(), req.ID, auth.GetPreferredStations)
	if err != nil {
		fail(w, r, err)
		return
	}
	rows, err := h.Engine.ListPreferred(r.Context(), uid)
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]preferenceView, 0, len(rows))
	for _, row := range rows {
		out = append(out, preferenceView{StationID: row.StationID, Preferred: row.Preferred})
	}
	writeJSON(w, http.StatusOK, out)
}

// upload stores the display settings and preference flags, display flags
// that are not sent keep their current value
func (h *handlers) upload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req uploadRequest
	if err := readJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	ctx := r.Context()
	uid, err := subject(ctx, req.ID, auth.UploadPreferences)
	if err != nil {
		fail(w, r, err)
		return
	}
	change := interest.DisplayChange{
		Temperature: req.Temperature,
		Humidity:    req.Humidity,
		Pressure:    req.Pressure,
	}
	prefs := make([]interest.Preference, 0, len(req.StationList))
	for _, s := range req.StationList {
		if s.StationID <= 0 {
			fail(w, r, InvalidInput{Field: "stationList.stationId", Reason: "must be a positive integer"})
			return
		}
		prefs = append(prefs, interest.Preference{StationID: s.StationID, Preferred: s.Preferred})
	}
	if err := h.Engine.ApplyUpload(ctx, uid, change, prefs); err != nil {
		fail(w, r, err)
		return
	}
	writeMessage(w, "settings updated")
}
