package coherence

type worstRule struct {
	pillar PillarKey
	status Status
}

// worstRules is evaluated top to bottom; the first pillar at the listed status
// wins. Only rhythm is ever surfaced at ATENÇÃO. The order is kept as released
// and is pending product review, do not reorder.
var worstRules = []worstRule{
	{Rhythm, StatusCritical},
	{Responsibility, StatusCritical},
	{Response, StatusCritical},
	{Consistency, StatusCritical},
	{Rhythm, StatusAttention},
}

// WorstPillar picks the pillar that drives the orientation lesson. It falls
// back to rhythm when no rule matches.
func WorstPillar(statuses map[PillarKey]Status) PillarKey {
	for _, r := range worstRules {
		if statuses[r.pillar] == r.status {
			return r.pillar
		}
	}
	return Rhythm
}
