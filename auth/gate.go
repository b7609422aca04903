package auth

type (
	Action string

	Decision struct {
		Allowed bool
		// Reason is set when Allowed is false
		Reason error
		// StepUp asks the handler to verify the password again
		StepUp bool
	}
)

const (
	Register             = Action("register")
	Login                = Action("login")
	Logout               = Action("logout")
	GetSelf              = Action("get_self")
	ListStations         = Action("list_stations")
	AddStation           = Action("add_station")
	RemoveStation        = Action("remove_station")
	BlockUser            = Action("block_user")
	UnlockUser           = Action("unlock_user")
	RankUser             = Action("rank_user")
	DegradeUser          = Action("degrade_user")
	ListUsers            = Action("list_users")
	GetPreferredStations = Action("get_preferred_stations")
	UploadPreferences    = Action("upload_preferences")
	GetMeasurements      = Action("get_measurements")
)

var (
	anonymousActions = map[Action]bool{
		Register:     true,
		Login:        true,
		ListStations: true,
	}

	userActions = map[Action]bool{
		Register:             true,
		Login:                true,
		ListStations:         true,
		Logout:               true,
		GetSelf:              true,
		GetPreferredStations: true,
		UploadPreferences:    true,
		GetMeasurements:      true,
	}
)

// Authorize decides if p may perform action. A nil p is an anonymous
// request.
func Authorize(p *Projection, action Action) Decision {
	switch {
	case p == nil:
		if anonymousActions[action] {
			return Decision{Allowed: true}
		}
		return Decision{Reason: Unauthenticated{}}
	case p.Blocked:
		return Decision{Reason: AccountBlocked{Username: p.Username}}
	case p.Admin:
		return Decision{Allowed: true, StepUp: action == RemoveStation}
	case userActions[action]:
		return Decision{Allowed: true}
	}
	return Decision{Reason: Forbidden{Action: action}}
}
