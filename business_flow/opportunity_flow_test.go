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
	"go.uber.org/zap"
)

func newBusinessFlowForTest(f *leadFixture, rules config.RulesConfig) BusinessFlow {
	return NewBusinessFlow(
		&memoryBusinessRepo{s: f.store},
		&memoryLeadRepo{s: f.store},
		passThroughTx{},
		f.publisher,
		rules,
		zap.NewNop(),
	)
}

func TestCreateBusiness(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	flow := newBusinessFlowForTest(f, config.RulesConfig{})
	lead := f.store.addLead("Paula", "11944443333", f.brokerA)
	ctx := context.Background()

	resp, err := flow.CreateBusiness(ctx, actorOf(f.leader), &dto.CreateBusinessRequest{
		LeadID:        lead.ID.String(),
		DevelopmentID: f.devOne.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, "new", resp.Status)
	assert.Equal(t, "website", resp.Source, "source defaults to the lead's")
	require.NotNil(t, resp.DevelopmentName)
	assert.Equal(t, "Residencial Aurora", *resp.DevelopmentName)
	require.NotNil(t, resp.LeadPhone)
	assert.Equal(t, "(11) 94444-3333", *resp.LeadPhone)
	require.NotNil(t, resp.BrokerName)
	assert.Equal(t, "Broker A", *resp.BrokerName)
	assert.Equal(t, []dto.EventType{dto.EventNewBusiness}, f.publisher.types())

	_, err = flow.CreateBusiness(ctx, actorOf(f.brokerA), &dto.CreateBusinessRequest{
		LeadID:        lead.ID.String(),
		DevelopmentID: f.devOne.String(),
	})
	requireCode(t, err, CodeBusinessDuplicated)

	_, err = flow.CreateBusiness(ctx, actorOf(f.outsider), &dto.CreateBusinessRequest{
		LeadID:        lead.ID.String(),
		DevelopmentID: f.devTwo.String(),
	})
	requireCode(t, err, CodeLeadNotFound)

	_, err = flow.CreateBusiness(ctx, actorOf(f.brokerA), &dto.CreateBusinessRequest{
		LeadID:        lead.ID.String(),
		DevelopmentID: uuid.NewString(),
	})
	requireCode(t, err, CodeDevelopmentNotFound)

	_, err = flow.CreateBusiness(ctx, actorOf(f.brokerA), &dto.CreateBusinessRequest{
		LeadID:        lead.ID.String(),
		DevelopmentID: f.devTwo.String(),
		Status:        utils.ToPtr("signed"),
	})
	requireCode(t, err, CodeInvalidStatus)
	assert.Len(t, f.store.business, 1)
}

func TestListBusiness_FollowsLeadVisibility(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	flow := newBusinessFlowForTest(f, config.RulesConfig{})
	teamLead := f.store.addLead("Team lead", "11900000010", f.brokerB)
	otherLead := f.store.addLead("Other lead", "11900000011", f.outsider)
	teamBusiness := f.store.addBusiness(teamLead, f.devOne)
	f.store.addBusiness(otherLead, f.devTwo)
	ctx := context.Background()

	items, err := flow.ListBusiness(ctx, actorOf(f.leader), &dto.ListBusinessRequest{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, teamBusiness.ID.String(), items[0].ID)

	items, err = flow.ListBusiness(ctx, actorOf(f.admin), &dto.ListBusinessRequest{})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = flow.ListBusiness(ctx, actorOf(f.admin), &dto.ListBusinessRequest{DevelopmentID: f.devTwo.String()})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = flow.ListBusiness(ctx, actorOf(f.brokerA), &dto.ListBusinessRequest{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetAndDeleteBusiness(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	flow := newBusinessFlowForTest(f, config.RulesConfig{})
	lead := f.store.addLead("Paula", "11944443333", f.brokerA)
	business := f.store.addBusiness(lead, f.devOne)
	ctx := context.Background()

	_, err := flow.GetBusiness(ctx, actorOf(f.outsider), business.ID.String())
	requireCode(t, err, CodeBusinessNotFound)
	assert.True(t, IsBusinessNotFound(err))

	got, err := flow.GetBusiness(ctx, actorOf(f.brokerA), business.ID.String())
	require.NoError(t, err)
	assert.Equal(t, lead.ID.String(), got.LeadID)

	err = flow.DeleteBusiness(ctx, actorOf(f.outsider), business.ID.String())
	requireCode(t, err, CodeBusinessNotFound)
	assert.Len(t, f.store.business, 1)

	require.NoError(t, flow.DeleteBusiness(ctx, actorOf(f.leader), business.ID.String()))
	assert.Empty(t, f.store.business)
	assert.Len(t, f.store.leads, 1, "deleting a business keeps its lead")
}

func TestUpdateBusiness(t *testing.T) {
	f := newLeadFixture(t, config.RulesConfig{})
	flow := newBusinessFlowForTest(f, config.RulesConfig{StrictStatusTransitions: true})
	lead := f.store.addLead("Paula", "11944443333", f.brokerA)
	first := f.store.addBusiness(lead, f.devOne)
	f.store.addBusiness(lead, f.devTwo)
	ctx := context.Background()

	resp, err := flow.UpdateBusiness(ctx, actorOf(f.brokerA), first.ID.String(), &dto.UpdateBusinessRequest{
		Notes:  utils.ToPtr("Visita agendada"),
		Status: utils.ToPtr("scheduled"),
	})
	require.NoError(t, err)
	assert.Equal(t, "scheduled", resp.Status)
	require.NotNil(t, resp.Notes)
	assert.Equal(t, "Visita agendada", *resp.Notes)

	_, err = flow.UpdateBusiness(ctx, actorOf(f.brokerA), first.ID.String(), &dto.UpdateBusinessRequest{
		DevelopmentID: utils.ToPtr(f.devTwo.String()),
	})
	requireCode(t, err, CodeBusinessDuplicated)

	_, err = flow.UpdateBusinessStatus(ctx, actorOf(f.brokerA), first.ID.String(), &dto.UpdateStatusRequest{Status: "visited"})
	require.NoError(t, err)
	_, err = flow.UpdateBusinessStatus(ctx, actorOf(f.brokerA), first.ID.String(), &dto.UpdateStatusRequest{Status: "new"})
	requireCode(t, err, CodeInvalidStatusTransition)

	_, err = flow.UpdateBusinessStatus(ctx, actorOf(f.outsider), first.ID.String(), &dto.UpdateStatusRequest{Status: "lost"})
	requireCode(t, err, CodeBusinessNotFound)
	assert.Equal(t, models.BusinessStatusVisited, f.store.business[first.ID].Status)
}
