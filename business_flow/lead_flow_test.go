package businessflow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/config"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	be, ok := AsBusinessError(err)
	require.True(t, ok, "expected BusinessError, got %T: %v", err, err)
	assert.Equal(t, code, be.Code)
}

type leadFixture struct {
	store     *memoryStore
	flow      LeadFlow
	publisher *recordingPublisher

	admin    *models.User
	leader   *models.User
	brokerA  *models.User
	brokerB  *models.User
	outsider *models.User
	devOne   uuid.UUID
	devTwo   uuid.UUID
}

func newLeadFixture(t *testing.T, rules config.RulesConfig) *leadFixture {
	t.Helper()
	store := newMemoryStore()
	publisher := &recordingPublisher{}

	f := &leadFixture{store: store, publisher: publisher}
	f.admin = store.addUser("Admin", models.RoleAdmin, nil)
	f.leader = store.addUser("Team Leader", models.RoleTeamLeader, nil)
	team := store.addTeam("Equipe Sul", f.leader)
	f.brokerA = store.addUser("Broker A", models.RoleBroker, &team.ID)
	f.brokerB = store.addUser("Broker B", models.RoleBroker, &team.ID)
	f.outsider = store.addUser("Outsider", models.RoleBroker, nil)
	f.devOne = store.addDevelopment("Residencial Aurora")
	f.devTwo = store.addDevelopment("Torre Norte")

	f.flow = NewLeadFlow(
		&memoryLeadRepo{s: store},
		&memoryBusinessRepo{s: store},
		&memoryUserRepo{s: store},
		passThroughTx{},
		publisher,
		rules,
		zap.NewNop(),
	)
	return f
}

func TestCreateLead_NewLeadCreatesOneBusinessPerDevelopment(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	ctx := context.Background()

	resp, err := f.flow.CreateLead(ctx, actorOf(f.brokerA), &dto.CreateLeadRequest{
		Name:         "Maria Souza",
		Phone:        "(11) 98765-4321",
		Source:       "website",
		Developments: []string{f.devOne.String(), f.devTwo.String(), f.devOne.String()},
	})
	require.NoError(t, err)

	assert.False(t, resp.ExistingLead)
	assert.Equal(t, "(11) 98765-4321", resp.Lead.Phone)
	assert.Equal(t, f.brokerA.ID.String(), resp.Lead.BrokerID)
	assert.Equal(t, "new", resp.Lead.Status)
	require.Len(t, resp.Businesses, 2)
	assert.Equal(t, f.devOne.String(), resp.Businesses[0].DevelopmentID)
	assert.Equal(t, f.devTwo.String(), resp.Businesses[1].DevelopmentID)

	stored, err := (&memoryLeadRepo{s: f.store}).ByPhone(ctx, "11987654321")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "11987654321", stored.Phone)

	assert.Equal(t, []dto.EventType{dto.EventNewLead, dto.EventNewBusiness, dto.EventNewBusiness}, f.publisher.types())
}

func TestCreateLead_RequiresDevelopments(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})

	_, err := f.flow.CreateLead(context.Background(), actorOf(f.brokerA), &dto.CreateLeadRequest{
		Name:   "Sem Empreendimento",
		Phone:  "11999990000",
		Source: "organic",
	})
	requireCode(t, err, CodeLeadWithoutDevelopments)
	assert.Empty(t, f.store.leads)
	assert.Empty(t, f.publisher.types())
}

func TestCreateLead_RejectsEmptyPhone(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})

	_, err := f.flow.CreateLead(context.Background(), actorOf(f.brokerA), &dto.CreateLeadRequest{
		Name:         "Sem Telefone",
		Phone:        "( ) -",
		Source:       "organic",
		Developments: []string{f.devOne.String()},
	})
	requireCode(t, err, CodeInvalidPhone)
}

func TestCreateLead_ExistingPhoneGetsNewBusiness(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	existing := f.store.addLead("Carlos Lima", "11912345678", f.brokerA)
	f.store.addBusiness(existing, f.devOne)

	resp, err := f.flow.CreateLead(context.Background(), actorOf(f.brokerA), &dto.CreateLeadRequest{
		Name:         "Carlos L.",
		Phone:        "(11) 91234-5678",
		Source:       "indication",
		Developments: []string{f.devTwo.String()},
	})
	require.NoError(t, err)

	assert.True(t, resp.ExistingLead)
	assert.Equal(t, existing.ID.String(), resp.Lead.ID)
	assert.Equal(t, "Carlos Lima", resp.Lead.Name)
	require.Len(t, resp.Businesses, 1)
	assert.Len(t, f.store.leads, 1)
	assert.Len(t, f.store.business, 2)
	assert.Equal(t, []dto.EventType{dto.EventNewBusiness}, f.publisher.types())
}

func TestCreateLead_ExistingPhoneOutOfScopeIsNotEchoed(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	notes := "renda 20k, prefere ligar à noite"
	existing := f.store.addLead("Carlos Lima", "11912345678", f.brokerA)
	existing.Notes = &notes
	f.store.addBusiness(existing, f.devOne)

	_, err := f.flow.GetLead(context.Background(), actorOf(f.outsider), existing.ID.String())
	requireCode(t, err, CodeLeadNotFound)

	resp, err := f.flow.CreateLead(context.Background(), actorOf(f.outsider), &dto.CreateLeadRequest{
		Name:         "Carlos",
		Phone:        "(11) 91234-5678",
		Source:       "organic",
		Developments: []string{f.devTwo.String()},
	})
	require.NoError(t, err)

	assert.True(t, resp.ExistingLead)
	assert.Nil(t, resp.Lead, "a lead outside the caller's scope must not be returned")
	require.Len(t, resp.Businesses, 1)
	assert.Equal(t, f.devTwo.String(), resp.Businesses[0].DevelopmentID)
	assert.Len(t, f.store.leads, 1)

	// the same development again is a conflict that carries no lead data either
	_, err = f.flow.CreateLead(context.Background(), actorOf(f.outsider), &dto.CreateLeadRequest{
		Name:         "Carlos",
		Phone:        "11912345678",
		Source:       "organic",
		Developments: []string{f.devOne.String()},
	})
	requireCode(t, err, CodeLeadDuplicated)
	be, _ := AsBusinessError(err)
	assert.NotContains(t, be.Message, "Carlos Lima")
}

func TestCreateLead_ExistingPhoneVisibleToLeaderIncludesBroker(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	existing := f.store.addLead("Carlos Lima", "11912345678", f.brokerA)

	resp, err := f.flow.CreateLead(context.Background(), actorOf(f.leader), &dto.CreateLeadRequest{
		Name:         "Carlos",
		Phone:        "11912345678",
		Source:       "organic",
		Developments: []string{f.devOne.String()},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Lead)
	assert.Equal(t, existing.ID.String(), resp.Lead.ID)
	require.NotNil(t, resp.Lead.BrokerName)
	assert.Equal(t, "Broker A", *resp.Lead.BrokerName)
}

func TestCreateLead_DuplicatedDevelopmentWritesNothing(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	existing := f.store.addLead("Carlos Lima", "11912345678", f.brokerA)
	f.store.addBusiness(existing, f.devOne)

	_, err := f.flow.CreateLead(context.Background(), actorOf(f.brokerA), &dto.CreateLeadRequest{
		Name:         "Carlos Lima",
		Phone:        "11912345678",
		Source:       "website",
		Developments: []string{f.devTwo.String(), f.devOne.String()},
	})
	requireCode(t, err, CodeLeadDuplicated)
	assert.True(t, IsLeadDuplicatedDevelopment(err))
	assert.Len(t, f.store.business, 1)
	assert.Empty(t, f.publisher.types())
}

func TestCreateLead_UnknownDevelopment(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})

	_, err := f.flow.CreateLead(context.Background(), actorOf(f.brokerA), &dto.CreateLeadRequest{
		Name:         "Ana",
		Phone:        "11911110000",
		Source:       "website",
		Developments: []string{uuid.NewString()},
	})
	requireCode(t, err, CodeDevelopmentNotFound)
}

func TestCreateLead_BrokerResolution(t *testing.T) {
	tests := []struct {
		name        string
		actor       func(f *leadFixture) models.Actor
		brokerID    func(f *leadFixture) *string
		wantOwner   func(f *leadFixture) uuid.UUID
		wantErrCode string
	}{
		{
			name:      "broker payload is ignored for brokers",
			actor:     func(f *leadFixture) models.Actor { return actorOf(f.brokerA) },
			brokerID:  func(f *leadFixture) *string { return utils.ToPtr(f.brokerB.ID.String()) },
			wantOwner: func(f *leadFixture) uuid.UUID { return f.brokerA.ID },
		},
		{
			name:      "team leader owns what it creates",
			actor:     func(f *leadFixture) models.Actor { return actorOf(f.leader) },
			brokerID:  func(f *leadFixture) *string { return nil },
			wantOwner: func(f *leadFixture) uuid.UUID { return f.leader.ID },
		},
		{
			name:      "admin assigns a broker",
			actor:     func(f *leadFixture) models.Actor { return actorOf(f.admin) },
			brokerID:  func(f *leadFixture) *string { return utils.ToPtr(f.brokerB.ID.String()) },
			wantOwner: func(f *leadFixture) uuid.UUID { return f.brokerB.ID },
		},
		{
			name:        "admin without broker",
			actor:       func(f *leadFixture) models.Actor { return actorOf(f.admin) },
			brokerID:    func(f *leadFixture) *string { return nil },
			wantErrCode: CodeLeadInvalidBroker,
		},
		{
			name:        "admin assigning another admin",
			actor:       func(f *leadFixture) models.Actor { return actorOf(f.admin) },
			brokerID:    func(f *leadFixture) *string { return utils.ToPtr(f.admin.ID.String()) },
			wantErrCode: CodeLeadInvalidBroker,
		},
		{
			name:        "admin assigning unknown user",
			actor:       func(f *leadFixture) models.Actor { return actorOf(f.admin) },
			brokerID:    func(f *leadFixture) *string { return utils.ToPtr(uuid.NewString()) },
			wantErrCode: CodeLeadInvalidBroker,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLeadFixture(t, config.RulesConfig{})
			resp, err := f.flow.CreateLead(context.Background(), tt.actor(f), &dto.CreateLeadRequest{
				Name:         "Lead",
				Phone:        "11955554444",
				Source:       "other",
				BrokerID:     tt.brokerID(f),
				Developments: []string{f.devOne.String()},
			})
			if tt.wantErrCode != "" {
				requireCode(t, err, tt.wantErrCode)
				assert.Empty(t, f.store.leads)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner(f).String(), resp.Lead.BrokerID)
		})
	}
}

func TestListLeads_Visibility(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	own := f.store.addLead("A - Leader own", "11900000001", f.leader)
	teamLead := f.store.addLead("B - Broker A lead", "11900000002", f.brokerA)
	other := f.store.addLead("C - Outsider lead", "11900000003", f.outsider)

	ids := func(items []dto.LeadResponse) []string {
		out := make([]string, 0, len(items))
		for _, i := range items {
			out = append(out, i.ID)
		}
		return out
	}

	ctx := context.Background()

	leaderView, err := f.flow.ListLeads(ctx, actorOf(f.leader), &dto.ListLeadsRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{own.ID.String(), teamLead.ID.String()}, ids(leaderView))

	brokerView, err := f.flow.ListLeads(ctx, actorOf(f.brokerA), &dto.ListLeadsRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{teamLead.ID.String()}, ids(brokerView))

	adminView, err := f.flow.ListLeads(ctx, actorOf(f.admin), &dto.ListLeadsRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{own.ID.String(), teamLead.ID.String(), other.ID.String()}, ids(adminView))

	unknown, err := f.flow.ListLeads(ctx, models.Actor{ID: uuid.New(), Role: "guest"}, &dto.ListLeadsRequest{})
	require.NoError(t, err)
	assert.Empty(t, unknown)

	// a team leader without a team only sees personal leads
	lonely := f.store.addUser("Lonely Leader", models.RoleTeamLeader, nil)
	f.store.addLead("D - Lonely", "11900000004", lonely)
	lonelyView, err := f.flow.ListLeads(ctx, actorOf(lonely), &dto.ListLeadsRequest{})
	require.NoError(t, err)
	assert.Len(t, lonelyView, 1)

	_, err = f.flow.ListLeads(ctx, actorOf(f.admin), &dto.ListLeadsRequest{Status: "bogus"})
	requireCode(t, err, CodeInvalidStatus)
}

func TestGetLead(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	lead := f.store.addLead("Joana", "11987650000", f.brokerA)
	ctx := context.Background()

	got, err := f.flow.GetLead(ctx, actorOf(f.leader), lead.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "(11) 98765-0000", got.Phone)
	require.NotNil(t, got.BrokerName)
	assert.Equal(t, "Broker A", *got.BrokerName)

	_, err = f.flow.GetLead(ctx, actorOf(f.outsider), lead.ID.String())
	requireCode(t, err, CodeLeadNotFound)
	assert.True(t, IsLeadNotFound(err))

	_, err = f.flow.GetLead(ctx, actorOf(f.admin), "not-a-uuid")
	requireCode(t, err, CodeLeadNotFound)
}

func TestDeleteLead_ScopedAndCascading(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	lead := f.store.addLead("Joana", "11987650000", f.brokerA)
	f.store.addBusiness(lead, f.devOne)
	ctx := context.Background()

	err := f.flow.DeleteLead(ctx, actorOf(f.outsider), lead.ID.String())
	requireCode(t, err, CodeLeadNotFound)
	assert.Len(t, f.store.leads, 1)

	require.NoError(t, f.flow.DeleteLead(ctx, actorOf(f.leader), lead.ID.String()))
	assert.Empty(t, f.store.leads)
	assert.Empty(t, f.store.business)

	err = f.flow.DeleteLead(ctx, actorOf(f.leader), lead.ID.String())
	requireCode(t, err, CodeLeadNotFound)
}

func TestUpdateLeadStatus(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	lead := f.store.addLead("Joana", "11987650000", f.brokerA)
	ctx := context.Background()

	resp, err := f.flow.UpdateLeadStatus(ctx, actorOf(f.brokerA), lead.ID.String(), &dto.UpdateStatusRequest{Status: "call"})
	require.NoError(t, err)
	assert.Equal(t, "call", resp.Status)
	require.NotNil(t, resp.LastContact)

	_, err = f.flow.UpdateLeadStatus(ctx, actorOf(f.brokerA), lead.ID.String(), &dto.UpdateStatusRequest{Status: "archived"})
	requireCode(t, err, CodeInvalidStatus)

	_, err = f.flow.UpdateLeadStatus(ctx, actorOf(f.outsider), lead.ID.String(), &dto.UpdateStatusRequest{Status: "lost"})
	requireCode(t, err, CodeLeadNotFound)
	assert.Equal(t, models.LeadStatusCall, f.store.leads[lead.ID].Status)
}

func TestUpdateLeadStatus_StrictTransitions(t *testing.T) {
	ctx := context.Background()

	lenient := newLeadFixture(t, config.RulesConfig{})
	lead := lenient.store.addLead("Joana", "11987650000", lenient.brokerA)
	lenient.store.leads[lead.ID].Status = models.LeadStatusConverted
	_, err := lenient.flow.UpdateLeadStatus(ctx, actorOf(lenient.brokerA), lead.ID.String(), &dto.UpdateStatusRequest{Status: "call"})
	require.NoError(t, err)

	strict := newLeadFixture(t, config.RulesConfig{StrictStatusTransitions: true})
	lead = strict.store.addLead("Joana", "11987650000", strict.brokerA)
	strict.store.leads[lead.ID].Status = models.LeadStatusConverted
	_, err = strict.flow.UpdateLeadStatus(ctx, actorOf(strict.brokerA), lead.ID.String(), &dto.UpdateStatusRequest{Status: "call"})
	requireCode(t, err, CodeInvalidStatusTransition)
	assert.True(t, IsInvalidStatusTransition(err))

	_, err = strict.flow.UpdateLeadStatus(ctx, actorOf(strict.brokerA), lead.ID.String(), &dto.UpdateStatusRequest{Status: "converted"})
	require.NoError(t, err)
}

func TestUpdateLead(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	lead := f.store.addLead("Joana", "11987650000", f.brokerA)
	ctx := context.Background()

	resp, err := f.flow.UpdateLead(ctx, actorOf(f.brokerA), lead.ID.String(), &dto.UpdateLeadRequest{
		Name:     utils.ToPtr("Joana Prado"),
		Phone:    utils.ToPtr("(21) 3333-4444"),
		BrokerID: utils.ToPtr(f.outsider.ID.String()),
	})
	require.NoError(t, err)
	assert.Equal(t, "Joana Prado", resp.Name)
	assert.Equal(t, "(21) 3333-4444", resp.Phone)
	assert.Equal(t, f.brokerA.ID.String(), resp.BrokerID, "non-admins cannot reassign")

	resp, err = f.flow.UpdateLead(ctx, actorOf(f.admin), lead.ID.String(), &dto.UpdateLeadRequest{
		BrokerID: utils.ToPtr(f.outsider.ID.String()),
	})
	require.NoError(t, err)
	assert.Equal(t, f.outsider.ID.String(), resp.BrokerID)

	_, err = f.flow.UpdateLead(ctx, actorOf(f.admin), lead.ID.String(), &dto.UpdateLeadRequest{
		BrokerID: utils.ToPtr(f.admin.ID.String()),
	})
	requireCode(t, err, CodeLeadInvalidBroker)

	_, err = f.flow.UpdateLead(ctx, actorOf(f.brokerA), lead.ID.String(), &dto.UpdateLeadRequest{Name: utils.ToPtr("X Y")})
	requireCode(t, err, CodeLeadNotFound)
}

func TestExportLeads(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	f.store.addLead("Ana", "11911112222", f.brokerA)
	f.store.addLead("Bruno", "1133334444", f.brokerB)
	f.store.addLead("Carla", "11955556666", f.outsider)

	buf, err := f.flow.ExportLeads(context.Background(), actorOf(f.leader), &dto.ListLeadsRequest{})
	require.NoError(t, err)

	xl, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	rows, err := xl.GetRows("Leads")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Nome", rows[0][0])
	assert.Equal(t, "Ana", rows[1][0])
	assert.Equal(t, "(11) 91111-2222", rows[1][1])
	assert.Equal(t, "Bruno", rows[2][0])
	assert.Equal(t, "(11) 3333-4444", rows[2][1])
}
