package models

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusCall      LeadStatus = "call"
	LeadStatusWhatsapp  LeadStatus = "whatsapp"
	LeadStatusScheduled LeadStatus = "scheduled"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
)

// OpenLeadStatuses are the statuses that still expect follow-up
var OpenLeadStatuses = []LeadStatus{LeadStatusNew, LeadStatusCall, LeadStatusWhatsapp, LeadStatusScheduled}

var leadTransitions = map[LeadStatus][]LeadStatus{
	LeadStatusNew:       {LeadStatusCall, LeadStatusWhatsapp, LeadStatusScheduled, LeadStatusConverted, LeadStatusLost},
	LeadStatusCall:      {LeadStatusWhatsapp, LeadStatusScheduled, LeadStatusConverted, LeadStatusLost},
	LeadStatusWhatsapp:  {LeadStatusCall, LeadStatusScheduled, LeadStatusConverted, LeadStatusLost},
	LeadStatusScheduled: {LeadStatusCall, LeadStatusWhatsapp, LeadStatusConverted, LeadStatusLost},
	LeadStatusConverted: {},
	LeadStatusLost:      {LeadStatusNew},
}

func (s LeadStatus) Valid() bool {
	_, ok := leadTransitions[s]
	return ok
}

// CanTransitionTo checks the allowed-transitions table. Rewriting the current status is always allowed.
func (s LeadStatus) CanTransitionTo(next LeadStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range leadTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type BusinessStatus string

const (
	BusinessStatusNew       BusinessStatus = "new"
	BusinessStatusCall      BusinessStatus = "call"
	BusinessStatusWhatsapp  BusinessStatus = "whatsapp"
	BusinessStatusScheduled BusinessStatus = "scheduled"
	BusinessStatusVisited   BusinessStatus = "visited"
	BusinessStatusProposal  BusinessStatus = "proposal"
	BusinessStatusConverted BusinessStatus = "converted"
	BusinessStatusLost      BusinessStatus = "lost"
)

var businessTransitions = map[BusinessStatus][]BusinessStatus{
	BusinessStatusNew:       {BusinessStatusCall, BusinessStatusWhatsapp, BusinessStatusScheduled, BusinessStatusConverted, BusinessStatusLost},
	BusinessStatusCall:      {BusinessStatusWhatsapp, BusinessStatusScheduled, BusinessStatusVisited, BusinessStatusProposal, BusinessStatusConverted, BusinessStatusLost},
	BusinessStatusWhatsapp:  {BusinessStatusCall, BusinessStatusScheduled, BusinessStatusVisited, BusinessStatusProposal, BusinessStatusConverted, BusinessStatusLost},
	BusinessStatusScheduled: {BusinessStatusCall, BusinessStatusWhatsapp, BusinessStatusVisited, BusinessStatusProposal, BusinessStatusConverted, BusinessStatusLost},
	BusinessStatusVisited:   {BusinessStatusScheduled, BusinessStatusProposal, BusinessStatusConverted, BusinessStatusLost},
	BusinessStatusProposal:  {BusinessStatusScheduled, BusinessStatusConverted, BusinessStatusLost},
	BusinessStatusConverted: {},
	BusinessStatusLost:      {BusinessStatusNew},
}

func (s BusinessStatus) Valid() bool {
	_, ok := businessTransitions[s]
	return ok
}

func (s BusinessStatus) CanTransitionTo(next BusinessStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range businessTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
