package services

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	recordsrepo "github.com/dmitrijs2005/notekeeper/internal/server/repositories/records"
	refreshtokensrepo "github.com/dmitrijs2005/notekeeper/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/notekeeper/internal/server/repositories/users"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newTestConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
}

// --- in-memory fakes ---

type fakeUsersRepo struct {
	byLogin map[string]*models.User
	byID    map[string]*models.User

	createErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byLogin: map[string]*models.User{}, byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) add(u *models.User) {
	f.byLogin[u.Login] = u
	f.byID[u.ID] = u
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	u.ID = "u-" + u.Login
	if u.Plan == "" {
		u.Plan = common.PlanPremium
	}
	f.add(u)
	return u, nil
}

func (f *fakeUsersRepo) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	u, ok := f.byLogin[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) SetPlan(ctx context.Context, id string, plan string) error {
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Plan = plan
	return nil
}

type fakeRefreshRepo struct {
	tokens map[string]*models.RefreshToken

	createErr error
	delErr    error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.tokens, token)
	return nil
}

// fakeRecordsRepo applies the same last-writer-wins rules as the Postgres
// implementation, in memory.
type fakeRecordsRepo struct {
	records map[string]*models.Record

	upsertErr error
}

func newFakeRecordsRepo() *fakeRecordsRepo {
	return &fakeRecordsRepo{records: map[string]*models.Record{}}
}

func (f *fakeRecordsRepo) Upsert(ctx context.Context, rec *models.Record) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if cur, ok := f.records[rec.ID]; ok && !rec.UpdatedAt.After(cur.UpdatedAt) {
		return nil
	}
	cp := *rec
	cp.Deleted = false
	cp.DeletedAt = nil
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeRecordsRepo) Tombstone(ctx context.Context, userID, id string, deletedAt time.Time) error {
	cur, ok := f.records[id]
	if !ok {
		at := deletedAt
		f.records[id] = &models.Record{ID: id, UserID: userID, UpdatedAt: deletedAt, Deleted: true, DeletedAt: &at}
		return nil
	}
	if !deletedAt.After(cur.UpdatedAt) {
		return nil
	}
	at := deletedAt
	cur.Payload = nil
	cur.UpdatedAt = deletedAt
	cur.Deleted = true
	cur.DeletedAt = &at
	return nil
}

func (f *fakeRecordsRepo) GetByID(ctx context.Context, userID, id string) (*models.Record, error) {
	rec, ok := f.records[id]
	if !ok || rec.UserID != userID {
		return nil, common.ErrorNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRecordsRepo) SelectUpdatedSince(ctx context.Context, userID string, since time.Time) ([]models.Record, error) {
	var out []models.Record
	for _, rec := range f.records {
		if rec.UserID == userID && rec.UpdatedAt.After(since) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	c *fakeRecordsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), r: newFakeRefreshRepo(), c: newFakeRecordsRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Records(db dbx.DBTX) recordsrepo.Repository             { return m.c }
