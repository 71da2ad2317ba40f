package businessflow

import (
	"github.com/google/uuid"
	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/utils"
)

// parseID turns a path identifier into a UUID. A malformed identifier cannot name
// an existing row, so callers answer it with their not-found error.
func parseID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// pageBounds converts page/pageSize into limit/offset; a zero page size returns everything
func pageBounds(page, pageSize int) (limit, offset int) {
	if pageSize <= 0 {
		return 0, 0
	}
	if page < 1 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}

func toLeadResponse(lead *models.Lead, brokerName *string) dto.LeadResponse {
	return dto.LeadResponse{
		ID:          lead.ID.String(),
		Name:        lead.Name,
		Phone:       utils.FormatPhone(lead.Phone),
		Source:      string(lead.Source),
		Status:      string(lead.Status),
		Notes:       lead.Notes,
		BrokerID:    lead.BrokerID.String(),
		BrokerName:  brokerName,
		LastContact: lead.LastContact,
		CreatedAt:   lead.CreatedAt,
		UpdatedAt:   lead.UpdatedAt,
	}
}

func toLeadViewResponse(view *models.LeadView) dto.LeadResponse {
	return toLeadResponse(&view.Lead, view.BrokerName)
}

func toBusinessResponse(business *models.Business) dto.BusinessResponse {
	return dto.BusinessResponse{
		ID:            business.ID.String(),
		LeadID:        business.LeadID.String(),
		DevelopmentID: business.DevelopmentID.String(),
		Source:        string(business.Source),
		Status:        string(business.Status),
		ScheduledAt:   business.ScheduledAt,
		RecallAt:      business.RecallAt,
		Notes:         business.Notes,
		CreatedAt:     business.CreatedAt,
		UpdatedAt:     business.UpdatedAt,
	}
}

func toBusinessViewResponse(view *models.BusinessView) dto.BusinessResponse {
	resp := toBusinessResponse(&view.Business)
	resp.LeadName = view.LeadName
	if view.LeadPhone != nil {
		resp.LeadPhone = utils.ToPtr(utils.FormatPhone(*view.LeadPhone))
	}
	resp.BrokerID = uuidPtrString(view.BrokerID)
	resp.BrokerName = view.BrokerName
	resp.DevelopmentName = view.DevelopmentName
	return resp
}

func toUserResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		TeamID:    uuidPtrString(user.TeamID),
		Active:    user.IsActive(),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func toTeamResponse(team *models.Team, members int64) dto.TeamResponse {
	resp := dto.TeamResponse{
		ID:        team.ID.String(),
		Name:      team.Name,
		LeaderID:  team.LeaderID.String(),
		Members:   members,
		CreatedAt: team.CreatedAt,
		UpdatedAt: team.UpdatedAt,
	}
	if team.Leader != nil {
		resp.LeaderName = utils.ToPtr(team.Leader.Name)
	}
	return resp
}

func toClientResponse(client *models.Client) dto.ClientResponse {
	return dto.ClientResponse{
		ID:        client.ID.String(),
		Name:      client.Name,
		CPF:       utils.FormatCPF(client.CPF),
		Phone:     utils.FormatPhone(client.Phone),
		Email:     client.Email,
		CreatedAt: client.CreatedAt,
		UpdatedAt: client.UpdatedAt,
	}
}

func toCallModeSessionResponse(session *models.CallModeSession) dto.CallModeSessionResponse {
	leads := []string(session.LeadsViewed)
	if leads == nil {
		leads = []string{}
	}
	return dto.CallModeSessionResponse{
		ID:              session.ID.String(),
		UserID:          session.UserID.String(),
		StartTime:       session.StartTime,
		EndTime:         session.EndTime,
		DurationSeconds: int64(session.Duration().Seconds()),
		LeadsViewed:     leads,
		CreatedAt:       session.CreatedAt,
	}
}
