package testing

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/utils"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the plaintext password of every fixture user
const DefaultPassword = "TestPass123!"

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateUser inserts an active user with the given role and optional team
func (tf *TestFixtures) CreateUser(name string, role models.Role, teamID *uuid.UUID) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        fmt.Sprintf("user.%d@example.com", rand.Int63()),
		PasswordHash: string(hashedPassword),
		Role:         role,
		TeamID:       teamID,
		Active:       utils.ToPtr(true),
	}
	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateTeam inserts a team led by leader and moves the leader into it
func (tf *TestFixtures) CreateTeam(name string, leader *models.User) (*models.Team, error) {
	team := &models.Team{Name: name, LeaderID: leader.ID}
	if err := tf.DB.DB.Create(team).Error; err != nil {
		return nil, fmt.Errorf("failed to create test team: %w", err)
	}
	if err := tf.DB.DB.Model(&models.User{}).Where("id = ?", leader.ID).Update("team_id", team.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to attach leader to team: %w", err)
	}
	leader.TeamID = &team.ID
	return team, nil
}

// CreateDevelopment inserts a catalog entry and returns its id
func (tf *TestFixtures) CreateDevelopment(name string) (uuid.UUID, error) {
	id := uuid.New()
	if err := tf.DB.DB.Exec("INSERT INTO developments (id, name) VALUES (?, ?)", id, name).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to create development: %w", err)
	}
	return id, nil
}

// CreateLead inserts a lead owned by broker with a random phone
func (tf *TestFixtures) CreateLead(name string, broker *models.User) (*models.Lead, error) {
	lead := &models.Lead{
		Name:     name,
		Phone:    fmt.Sprintf("119%08d", rand.Intn(100000000)),
		Source:   models.LeadSourceWebsite,
		Status:   models.LeadStatusNew,
		BrokerID: broker.ID,
	}
	if err := tf.DB.DB.Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create test lead: %w", err)
	}
	return lead, nil
}

// CreateBusiness links lead to a development
func (tf *TestFixtures) CreateBusiness(lead *models.Lead, developmentID uuid.UUID) (*models.Business, error) {
	business := &models.Business{
		LeadID:        lead.ID,
		DevelopmentID: developmentID,
		Source:        lead.Source,
		Status:        models.BusinessStatusNew,
	}
	if err := tf.DB.DB.Create(business).Error; err != nil {
		return nil, fmt.Errorf("failed to create test business: %w", err)
	}
	return business, nil
}

// CreateClient inserts a client with a random CPF
func (tf *TestFixtures) CreateClient(name string) (*models.Client, error) {
	client := &models.Client{
		Name:  name,
		CPF:   fmt.Sprintf("%011d", rand.Int63n(100000000000)),
		Phone: "11987654321",
	}
	if err := tf.DB.DB.Create(client).Error; err != nil {
		return nil, fmt.Errorf("failed to create test client: %w", err)
	}
	return client, nil
}

// CreateSale records a sale for client in the external ledger table
func (tf *TestFixtures) CreateSale(client *models.Client) error {
	return tf.DB.DB.Exec("INSERT INTO sales (id, client_id) VALUES (?, ?)", uuid.New(), client.ID).Error
}
