package corridor

const (
	// share of the direction term taken by alignment with the sample heading;
	// the rest is continuity with the bearing of the edge being left
	DIRECTION_HEADING_SHARE = 0.75
	// perpendicular distance (meter) at which the distance term reaches zero
	DISTANCE_NORMALIZATION_M = 300.0
	// candidates must score strictly above this to be selected
	MIN_CANDIDATE_SCORE = 0.0
	SCORE_EPS           = 1e-9
)
