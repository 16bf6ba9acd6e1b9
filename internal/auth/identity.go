package auth

// Identity carries the already-trusted organizational identifiers of a
// caller. Which fields are populated depends on the role: station-bound
// roles carry StationID, dealers carry DealerID, OMC users carry OMCID.
type Identity struct {
	Subject   string
	Role      Role
	StationID string
	DealerID  string
	OMCID     string
}
