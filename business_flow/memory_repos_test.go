package businessflow

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/utils"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// memoryStore backs the in-memory repositories used by the flow tests.
// Visibility follows the same rules as the SQL scopes.
type memoryStore struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*models.User
	teams        map[uuid.UUID]*models.Team
	leads        map[uuid.UUID]*models.Lead
	business     map[uuid.UUID]*models.Business
	developments map[uuid.UUID]string
	clients      map[uuid.UUID]*models.Client
	sales        map[uuid.UUID]int64
	sessions     []*models.CallModeSession
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:        map[uuid.UUID]*models.User{},
		teams:        map[uuid.UUID]*models.Team{},
		leads:        map[uuid.UUID]*models.Lead{},
		business:     map[uuid.UUID]*models.Business{},
		developments: map[uuid.UUID]string{},
		clients:      map[uuid.UUID]*models.Client{},
		sales:        map[uuid.UUID]int64{},
	}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func foreignKeyViolation() error {
	return &pgconn.PgError{Code: "23503"}
}

func raisedException(message string) error {
	return &pgconn.PgError{Code: "P0001", Message: message}
}

func stamp(created, updated *time.Time) {
	now := utils.UTCNow()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}

// leadVisible mirrors repository.LeadVisibility; callers hold the lock
func (s *memoryStore) leadVisible(actor models.Actor, lead *models.Lead) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleBroker:
		return lead.BrokerID == actor.ID
	case models.RoleTeamLeader:
		if lead.BrokerID == actor.ID {
			return true
		}
		if actor.TeamID == nil {
			return false
		}
		owner, ok := s.users[lead.BrokerID]
		return ok && owner.TeamID != nil && *owner.TeamID == *actor.TeamID
	}
	return false
}

func (s *memoryStore) leadView(lead *models.Lead) *models.LeadView {
	view := &models.LeadView{Lead: *lead}
	if owner, ok := s.users[lead.BrokerID]; ok {
		view.BrokerName = utils.ToPtr(owner.Name)
	}
	return view
}

func (s *memoryStore) businessView(b *models.Business) *models.BusinessView {
	view := &models.BusinessView{Business: *b}
	if lead, ok := s.leads[b.LeadID]; ok {
		view.LeadName = utils.ToPtr(lead.Name)
		view.LeadPhone = utils.ToPtr(lead.Phone)
		view.BrokerID = utils.ToPtr(lead.BrokerID)
		if owner, ok := s.users[lead.BrokerID]; ok {
			view.BrokerName = utils.ToPtr(owner.Name)
		}
	}
	if name, ok := s.developments[b.DevelopmentID]; ok {
		view.DevelopmentName = utils.ToPtr(name)
	}
	return view
}

// passThroughTx runs fn directly; the in-memory store has no rollback
type passThroughTx struct{}

func (passThroughTx) WithinTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event dto.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []dto.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]dto.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// ---- users

type memoryUserRepo struct{ s *memoryStore }

func (r *memoryUserRepo) ByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryUserRepo) match(u *models.User, f models.UserFilter) bool {
	if f.Role != nil && u.Role != *f.Role {
		return false
	}
	if f.TeamID != nil && (u.TeamID == nil || *u.TeamID != *f.TeamID) {
		return false
	}
	if f.Active != nil && u.IsActive() != *f.Active {
		return false
	}
	if f.Email != nil && !strings.EqualFold(u.Email, *f.Email) {
		return false
	}
	if f.Search != nil && !strings.Contains(strings.ToLower(u.Name+" "+u.Email), strings.ToLower(*f.Search)) {
		return false
	}
	return true
}

func (r *memoryUserRepo) ByFilter(_ context.Context, f models.UserFilter, _ string, _, _ int) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.User
	for _, u := range r.s.users {
		if r.match(u, f) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryUserRepo) ByEmail(ctx context.Context, email string) (*models.User, error) {
	rows, err := r.ByFilter(ctx, models.UserFilter{Email: &email}, "", 1, 0)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *memoryUserRepo) Save(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.users {
		if strings.EqualFold(other.Email, u.Email) {
			return uniqueViolation("uk_users_email")
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Active == nil {
		u.Active = utils.ToPtr(true)
	}
	stamp(&u.CreatedAt, &u.UpdatedAt)
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r *memoryUserRepo) SaveBatch(ctx context.Context, users []*models.User) error {
	for _, u := range users {
		if err := r.Save(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryUserRepo) Count(ctx context.Context, f models.UserFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, f, "", 0, 0)
	return int64(len(rows)), err
}

func (r *memoryUserRepo) Exists(ctx context.Context, f models.UserFilter) (bool, error) {
	n, err := r.Count(ctx, f)
	return n > 0, err
}

func (r *memoryUserRepo) UpdateByID(_ context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return false, nil
	}
	for k, v := range fields {
		switch k {
		case "name":
			u.Name = v.(string)
		case "email":
			u.Email = v.(string)
		case "password_hash":
			u.PasswordHash = v.(string)
		case "role":
			u.Role = v.(models.Role)
		case "team_id":
			if v == nil {
				u.TeamID = nil
			} else {
				id := v.(uuid.UUID)
				u.TeamID = &id
			}
		case "active":
			u.Active = utils.ToPtr(v.(bool))
		}
	}
	u.UpdatedAt = utils.UTCNow()
	return true, nil
}

func (r *memoryUserRepo) DeleteByID(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return false, nil
	}
	delete(r.s.users, id)
	return true, nil
}

func (r *memoryUserRepo) ToggleActive(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return false, nil
	}
	u.Active = utils.ToPtr(!u.IsActive())
	return true, nil
}

// ---- teams

type memoryTeamRepo struct{ s *memoryStore }

func (r *memoryTeamRepo) ByID(_ context.Context, id uuid.UUID) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.teams[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryTeamRepo) ByFilter(_ context.Context, f models.TeamFilter, _ string, _, _ int) ([]*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Team
	for _, t := range r.s.teams {
		if f.LeaderID != nil && t.LeaderID != *f.LeaderID {
			continue
		}
		if f.Name != nil && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(*f.Name)) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryTeamRepo) leaderAllowed(id uuid.UUID) error {
	leader, ok := r.s.users[id]
	if !ok {
		return foreignKeyViolation()
	}
	if leader.Role != models.RoleTeamLeader {
		return raisedException("Team leader must have teamLeader role")
	}
	return nil
}

func (r *memoryTeamRepo) Save(_ context.Context, t *models.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.leaderAllowed(t.LeaderID); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	stamp(&t.CreatedAt, &t.UpdatedAt)
	cp := *t
	r.s.teams[t.ID] = &cp
	return nil
}

func (r *memoryTeamRepo) SaveBatch(ctx context.Context, teams []*models.Team) error {
	for _, t := range teams {
		if err := r.Save(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryTeamRepo) Count(ctx context.Context, f models.TeamFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, f, "", 0, 0)
	return int64(len(rows)), err
}

func (r *memoryTeamRepo) Exists(ctx context.Context, f models.TeamFilter) (bool, error) {
	n, err := r.Count(ctx, f)
	return n > 0, err
}

func (r *memoryTeamRepo) UpdateByID(_ context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[id]
	if !ok {
		return false, nil
	}
	if leaderID, ok := fields["leader_id"].(uuid.UUID); ok {
		if err := r.leaderAllowed(leaderID); err != nil {
			return false, err
		}
		t.LeaderID = leaderID
	}
	if name, ok := fields["name"].(string); ok {
		t.Name = name
	}
	t.UpdatedAt = utils.UTCNow()
	return true, nil
}

func (r *memoryTeamRepo) DeleteByID(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.teams[id]; !ok {
		return false, nil
	}
	delete(r.s.teams, id)
	for _, u := range r.s.users {
		if u.TeamID != nil && *u.TeamID == id {
			u.TeamID = nil
		}
	}
	return true, nil
}

// ---- leads

type memoryLeadRepo struct{ s *memoryStore }

func (r *memoryLeadRepo) match(l *models.Lead, f models.LeadFilter) bool {
	if f.Status != nil && l.Status != *f.Status {
		return false
	}
	if len(f.StatusIn) > 0 {
		found := false
		for _, st := range f.StatusIn {
			if l.Status == st {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if f.Source != nil && l.Source != *f.Source {
		return false
	}
	if f.BrokerID != nil && l.BrokerID != *f.BrokerID {
		return false
	}
	if f.Phone != nil && l.Phone != *f.Phone {
		return false
	}
	if f.Search != nil && !strings.Contains(strings.ToLower(l.Name), strings.ToLower(*f.Search)) && !strings.Contains(l.Phone, *f.Search) {
		return false
	}
	if f.ContactedBefore != nil {
		last := l.CreatedAt
		if l.LastContact != nil {
			last = *l.LastContact
		}
		if !last.Before(*f.ContactedBefore) {
			return false
		}
	}
	return true
}

func (r *memoryLeadRepo) ByID(_ context.Context, id uuid.UUID) (*models.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l, ok := r.s.leads[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryLeadRepo) ByFilter(_ context.Context, f models.LeadFilter, _ string, limit, _ int) ([]*models.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Lead
	for _, l := range r.s.leads {
		if r.match(l, f) {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryLeadRepo) ByPhone(ctx context.Context, phone string) (*models.Lead, error) {
	digits := utils.UnmaskValue(phone)
	rows, err := r.ByFilter(ctx, models.LeadFilter{Phone: &digits}, "", 1, 0)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *memoryLeadRepo) LockPhone(context.Context, string) error { return nil }

func (r *memoryLeadRepo) brokerAllowed(id uuid.UUID) error {
	owner, ok := r.s.users[id]
	if !ok {
		return foreignKeyViolation()
	}
	if !owner.Role.CanOwnLeads() {
		return raisedException("Lead must be assigned to a broker or team leader")
	}
	return nil
}

func (r *memoryLeadRepo) Save(_ context.Context, l *models.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.brokerAllowed(l.BrokerID); err != nil {
		return err
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = models.LeadStatusNew
	}
	stamp(&l.CreatedAt, &l.UpdatedAt)
	cp := *l
	r.s.leads[l.ID] = &cp
	return nil
}

func (r *memoryLeadRepo) SaveBatch(ctx context.Context, leads []*models.Lead) error {
	for _, l := range leads {
		if err := r.Save(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryLeadRepo) Count(ctx context.Context, f models.LeadFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, f, "", 0, 0)
	return int64(len(rows)), err
}

func (r *memoryLeadRepo) Exists(ctx context.Context, f models.LeadFilter) (bool, error) {
	n, err := r.Count(ctx, f)
	return n > 0, err
}

func (r *memoryLeadRepo) ListVisible(_ context.Context, actor models.Actor, f models.LeadFilter, _ string, limit, offset int) ([]*models.LeadView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.LeadView
	for _, l := range r.s.leads {
		if r.s.leadVisible(actor, l) && r.match(l, f) {
			out = append(out, r.s.leadView(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryLeadRepo) VisibleByID(_ context.Context, actor models.Actor, id uuid.UUID) (*models.LeadView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.leads[id]
	if !ok || !r.s.leadVisible(actor, l) {
		return nil, nil
	}
	return r.s.leadView(l), nil
}

func (r *memoryLeadRepo) UpdateVisible(_ context.Context, actor models.Actor, id uuid.UUID, fields map[string]any) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.leads[id]
	if !ok || !r.s.leadVisible(actor, l) {
		return false, nil
	}
	if brokerID, ok := fields["broker_id"].(uuid.UUID); ok {
		if err := r.brokerAllowed(brokerID); err != nil {
			return false, err
		}
		l.BrokerID = brokerID
	}
	for k, v := range fields {
		switch k {
		case "name":
			l.Name = v.(string)
		case "phone":
			l.Phone = v.(string)
		case "source":
			l.Source = v.(models.LeadSource)
		case "status":
			l.Status = v.(models.LeadStatus)
		case "notes":
			l.Notes = utils.ToPtr(v.(string))
		case "last_contact":
			l.LastContact = utils.ToPtr(v.(time.Time))
		}
	}
	l.UpdatedAt = utils.UTCNow()
	return true, nil
}

func (r *memoryLeadRepo) DeleteVisible(_ context.Context, actor models.Actor, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.leads[id]
	if !ok || !r.s.leadVisible(actor, l) {
		return false, nil
	}
	delete(r.s.leads, id)
	for bid, b := range r.s.business {
		if b.LeadID == id {
			delete(r.s.business, bid)
		}
	}
	return true, nil
}

// ---- business

type memoryBusinessRepo struct{ s *memoryStore }

func (r *memoryBusinessRepo) match(b *models.Business, f models.BusinessFilter) bool {
	if f.Status != nil && b.Status != *f.Status {
		return false
	}
	if f.LeadID != nil && b.LeadID != *f.LeadID {
		return false
	}
	if f.DevelopmentID != nil && b.DevelopmentID != *f.DevelopmentID {
		return false
	}
	return true
}

func (r *memoryBusinessRepo) visible(actor models.Actor, b *models.Business) bool {
	lead, ok := r.s.leads[b.LeadID]
	return ok && r.s.leadVisible(actor, lead)
}

func (r *memoryBusinessRepo) ByID(_ context.Context, id uuid.UUID) (*models.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b, ok := r.s.business[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryBusinessRepo) ByFilter(_ context.Context, f models.BusinessFilter, _ string, _, _ int) ([]*models.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Business
	for _, b := range r.s.business {
		if r.match(b, f) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

// check enforces the foreign keys and the (lead, development) unique index; callers hold the lock
func (r *memoryBusinessRepo) check(b *models.Business, pending []*models.Business) error {
	if _, ok := r.s.leads[b.LeadID]; !ok {
		return foreignKeyViolation()
	}
	if _, ok := r.s.developments[b.DevelopmentID]; !ok {
		return foreignKeyViolation()
	}
	for _, other := range r.s.business {
		if other.ID != b.ID && other.LeadID == b.LeadID && other.DevelopmentID == b.DevelopmentID {
			return uniqueViolation("uk_business_lead_development")
		}
	}
	for _, other := range pending {
		if other != b && other.LeadID == b.LeadID && other.DevelopmentID == b.DevelopmentID {
			return uniqueViolation("uk_business_lead_development")
		}
	}
	return nil
}

func (r *memoryBusinessRepo) insert(b *models.Business) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = models.BusinessStatusNew
	}
	stamp(&b.CreatedAt, &b.UpdatedAt)
	cp := *b
	r.s.business[b.ID] = &cp
}

func (r *memoryBusinessRepo) Save(_ context.Context, b *models.Business) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.check(b, nil); err != nil {
		return err
	}
	r.insert(b)
	return nil
}

func (r *memoryBusinessRepo) SaveBatch(_ context.Context, items []*models.Business) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range items {
		if err := r.check(b, items); err != nil {
			return err
		}
	}
	for _, b := range items {
		r.insert(b)
	}
	return nil
}

func (r *memoryBusinessRepo) Count(ctx context.Context, f models.BusinessFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, f, "", 0, 0)
	return int64(len(rows)), err
}

func (r *memoryBusinessRepo) Exists(ctx context.Context, f models.BusinessFilter) (bool, error) {
	n, err := r.Count(ctx, f)
	return n > 0, err
}

func (r *memoryBusinessRepo) ListVisible(_ context.Context, actor models.Actor, f models.BusinessFilter, _ string, _, _ int) ([]*models.BusinessView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.BusinessView
	for _, b := range r.s.business {
		if r.visible(actor, b) && r.match(b, f) {
			out = append(out, r.s.businessView(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryBusinessRepo) VisibleByID(_ context.Context, actor models.Actor, id uuid.UUID) (*models.BusinessView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.business[id]
	if !ok || !r.visible(actor, b) {
		return nil, nil
	}
	return r.s.businessView(b), nil
}

func (r *memoryBusinessRepo) UpdateVisible(_ context.Context, actor models.Actor, id uuid.UUID, fields map[string]any) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.business[id]
	if !ok || !r.visible(actor, b) {
		return false, nil
	}
	next := *b
	for k, v := range fields {
		switch k {
		case "development_id":
			next.DevelopmentID = v.(uuid.UUID)
		case "source":
			next.Source = v.(models.LeadSource)
		case "status":
			next.Status = v.(models.BusinessStatus)
		case "scheduled_at":
			next.ScheduledAt = utils.ToPtr(v.(time.Time))
		case "recall_at":
			next.RecallAt = utils.ToPtr(v.(time.Time))
		case "notes":
			next.Notes = utils.ToPtr(v.(string))
		}
	}
	if err := r.check(&next, nil); err != nil {
		return false, err
	}
	next.UpdatedAt = utils.UTCNow()
	*b = next
	return true, nil
}

func (r *memoryBusinessRepo) DeleteVisible(_ context.Context, actor models.Actor, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.business[id]
	if !ok || !r.visible(actor, b) {
		return false, nil
	}
	delete(r.s.business, id)
	return true, nil
}

// ---- clients

type memoryClientRepo struct{ s *memoryStore }

func (r *memoryClientRepo) ByID(_ context.Context, id uuid.UUID) (*models.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.clients[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryClientRepo) ByFilter(_ context.Context, f models.ClientFilter, _ string, _, _ int) ([]*models.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Client
	for _, c := range r.s.clients {
		if f.CPF != nil && c.CPF != *f.CPF {
			continue
		}
		if f.Search != nil {
			term := strings.ToLower(*f.Search)
			digits := utils.UnmaskValue(*f.Search)
			if !strings.Contains(strings.ToLower(c.Name), term) && (digits == "" || !strings.Contains(c.CPF, digits)) {
				continue
			}
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryClientRepo) ByCPF(ctx context.Context, cpf string) (*models.Client, error) {
	digits := utils.UnmaskValue(cpf)
	rows, err := r.ByFilter(ctx, models.ClientFilter{CPF: &digits}, "", 1, 0)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *memoryClientRepo) Save(_ context.Context, c *models.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.clients {
		if other.CPF == c.CPF {
			return uniqueViolation("uk_clients_cpf")
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	stamp(&c.CreatedAt, &c.UpdatedAt)
	cp := *c
	r.s.clients[c.ID] = &cp
	return nil
}

func (r *memoryClientRepo) SaveBatch(ctx context.Context, clients []*models.Client) error {
	for _, c := range clients {
		if err := r.Save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryClientRepo) Count(ctx context.Context, f models.ClientFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, f, "", 0, 0)
	return int64(len(rows)), err
}

func (r *memoryClientRepo) Exists(ctx context.Context, f models.ClientFilter) (bool, error) {
	n, err := r.Count(ctx, f)
	return n > 0, err
}

func (r *memoryClientRepo) UpdateByID(_ context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clients[id]
	if !ok {
		return false, nil
	}
	for k, v := range fields {
		switch k {
		case "name":
			c.Name = v.(string)
		case "cpf":
			c.CPF = v.(string)
		case "phone":
			c.Phone = v.(string)
		case "email":
			c.Email = utils.ToPtr(v.(string))
		}
	}
	c.UpdatedAt = utils.UTCNow()
	return true, nil
}

func (r *memoryClientRepo) DeleteByID(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clients[id]; !ok {
		return false, nil
	}
	delete(r.s.clients, id)
	return true, nil
}

func (r *memoryClientRepo) CountSales(_ context.Context, clientID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.sales[clientID], nil
}

// ---- call mode sessions

type memorySessionRepo struct{ s *memoryStore }

func (r *memorySessionRepo) ByID(_ context.Context, id uuid.UUID) (*models.CallModeSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, s := range r.s.sessions {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memorySessionRepo) ByFilter(_ context.Context, f models.CallModeSessionFilter, _ string, _, _ int) ([]*models.CallModeSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.CallModeSession
	for _, s := range r.s.sessions {
		if f.UserID != nil && s.UserID != *f.UserID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memorySessionRepo) Save(_ context.Context, s *models.CallModeSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.LeadsViewed == nil {
		s.LeadsViewed = pq.StringArray{}
	}
	stamp(&s.CreatedAt, &s.UpdatedAt)
	cp := *s
	r.s.sessions = append(r.s.sessions, &cp)
	return nil
}

func (r *memorySessionRepo) SaveBatch(ctx context.Context, sessions []*models.CallModeSession) error {
	for _, s := range sessions {
		if err := r.Save(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *memorySessionRepo) Count(ctx context.Context, f models.CallModeSessionFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, f, "", 0, 0)
	return int64(len(rows)), err
}

func (r *memorySessionRepo) Exists(ctx context.Context, f models.CallModeSessionFilter) (bool, error) {
	n, err := r.Count(ctx, f)
	return n > 0, err
}

// ---- fixtures

func (s *memoryStore) addUser(name string, role models.Role, teamID *uuid.UUID) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{
		ID:     uuid.New(),
		Name:   name,
		Email:  strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@imobflow.test",
		Role:   role,
		TeamID: teamID,
		Active: utils.ToPtr(true),
	}
	stamp(&u.CreatedAt, &u.UpdatedAt)
	s.users[u.ID] = u
	return u
}

func (s *memoryStore) addTeam(name string, leader *models.User) *models.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &models.Team{ID: uuid.New(), Name: name, LeaderID: leader.ID}
	stamp(&t.CreatedAt, &t.UpdatedAt)
	s.teams[t.ID] = t
	leader.TeamID = &t.ID
	return t
}

func (s *memoryStore) addDevelopment(name string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.developments[id] = name
	return id
}

func (s *memoryStore) addLead(name, phone string, broker *models.User) *models.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := &models.Lead{
		ID:       uuid.New(),
		Name:     name,
		Phone:    phone,
		Source:   models.LeadSourceWebsite,
		Status:   models.LeadStatusNew,
		BrokerID: broker.ID,
	}
	stamp(&l.CreatedAt, &l.UpdatedAt)
	s.leads[l.ID] = l
	return l
}

func (s *memoryStore) addBusiness(lead *models.Lead, developmentID uuid.UUID) *models.Business {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &models.Business{
		ID:            uuid.New(),
		LeadID:        lead.ID,
		DevelopmentID: developmentID,
		Source:        lead.Source,
		Status:        models.BusinessStatusNew,
	}
	stamp(&b.CreatedAt, &b.UpdatedAt)
	s.business[b.ID] = b
	return b
}

func actorOf(u *models.User) models.Actor {
	return models.Actor{ID: u.ID, Role: u.Role, TeamID: u.TeamID}
}
