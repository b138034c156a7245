package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-hq/meridian-admin/internal/audit"
	"github.com/meridian-hq/meridian-admin/internal/shared"
)

type memoryUserRepo struct {
	nextID    int64
	users     map[int64]User
	roles     map[int64]string
	userRoles map[int64][]int64
	sessions  map[int64][]string
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		nextID:    1,
		users:     make(map[int64]User),
		roles:     make(map[int64]string),
		userRoles: make(map[int64][]int64),
		sessions:  make(map[int64][]string),
	}
}

func (m *memoryUserRepo) GetUser(_ context.Context, id int64) (User, error) {
	user, ok := m.users[id]
	if !ok || user.DeletedAt != nil {
		return User{}, shared.ErrNotFound
	}
	user.Roles = nil
	for _, roleID := range m.userRoles[id] {
		user.Roles = append(user.Roles, RoleRef{ID: roleID, Name: m.roles[roleID]})
	}
	return user, nil
}

func (m *memoryUserRepo) FindByEmail(_ context.Context, email string) (User, error) {
	for _, user := range m.users {
		if user.Email == email && user.DeletedAt == nil {
			return user, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (m *memoryUserRepo) ListUsers(_ context.Context, _ ListFilters, offset, limit int) ([]User, error) {
	var all []User
	for id := int64(1); id < m.nextID; id++ {
		if user, ok := m.users[id]; ok && user.DeletedAt == nil {
			all = append(all, user)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *memoryUserRepo) CountUsers(_ context.Context, _ ListFilters) (int, error) {
	count := 0
	for _, user := range m.users {
		if user.DeletedAt == nil {
			count++
		}
	}
	return count, nil
}

func (m *memoryUserRepo) MissingRoleIDs(_ context.Context, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		if _, ok := m.roles[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (m *memoryUserRepo) UserRoleIDs(_ context.Context, userID int64) ([]int64, error) {
	return append([]int64(nil), m.userRoles[userID]...), nil
}

func (m *memoryUserRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxPort) error) error {
	return fn(ctx, m)
}

func (m *memoryUserRepo) InsertUser(_ context.Context, name, email, passwordHash, avatar string, isActive bool) (User, error) {
	user := User{ID: m.nextID, Name: name, Email: email, PasswordHash: passwordHash, Avatar: avatar, IsActive: isActive, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.nextID++
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUserRepo) UpdateUser(_ context.Context, user User) (User, error) {
	stored, ok := m.users[user.ID]
	if !ok || stored.DeletedAt != nil {
		return User{}, shared.ErrNotFound
	}
	user.CreatedAt = stored.CreatedAt
	user.UpdatedAt = time.Now()
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUserRepo) SoftDeleteUser(_ context.Context, id int64) error {
	user, ok := m.users[id]
	if !ok || user.DeletedAt != nil {
		return shared.ErrNotFound
	}
	now := time.Now()
	user.DeletedAt = &now
	m.users[id] = user
	return nil
}

func (m *memoryUserRepo) AttachRoles(_ context.Context, userID int64, roleIDs []int64) error {
	m.userRoles[userID] = append(m.userRoles[userID], roleIDs...)
	return nil
}

func (m *memoryUserRepo) DetachRoles(_ context.Context, userID int64, roleIDs []int64) error {
	drop := make(map[int64]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		drop[id] = struct{}{}
	}
	var kept []int64
	for _, id := range m.userRoles[userID] {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	m.userRoles[userID] = kept
	return nil
}

func (m *memoryUserRepo) DeleteUserSessions(_ context.Context, userID int64) ([]string, error) {
	tokens := m.sessions[userID]
	delete(m.sessions, userID)
	return tokens, nil
}

type recordingInvalidator struct {
	userIDs []int64
}

func (r *recordingInvalidator) Invalidate(_ context.Context, userID int64) error {
	r.userIDs = append(r.userIDs, userID)
	return nil
}

type recordingRevoker struct {
	tokens []string
}

func (r *recordingRevoker) RevokeAll(_ context.Context, tokens []string) error {
	r.tokens = append(r.tokens, tokens...)
	return nil
}

type captureSink struct {
	entries []audit.Entry
}

func (c *captureSink) Insert(_ context.Context, entry audit.Entry) error {
	c.entries = append(c.entries, entry)
	return nil
}

func newTestUserService(repo *memoryUserRepo) (*Service, *recordingInvalidator, *recordingRevoker, *captureSink) {
	inv := &recordingInvalidator{}
	revoker := &recordingRevoker{}
	sink := &captureSink{}
	svc := NewService(repo, inv, revoker, audit.NewRecorder(sink, nil), nil)
	return svc, inv, revoker, sink
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _, _ := newTestUserService(repo)

	_, err := svc.Create(context.Background(), CreateInput{Name: "Ana", Email: "a@x.com", Password: "secret123", IsActive: true})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Name: "Ana 2", Email: "a@x.com", Password: "secret123", IsActive: true})
	assert.Equal(t, shared.KindDuplicateEmail, shared.KindOf(err))
	count, _ := repo.CountUsers(context.Background(), ListFilters{})
	assert.Equal(t, 1, count, "only one row may exist")
}

func TestCreateEmailComparisonIsExact(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _, _ := newTestUserService(repo)

	_, err := svc.Create(context.Background(), CreateInput{Name: "Ana", Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Name: "Ana", Email: "A@x.com", Password: "secret123"})
	assert.NoError(t, err, "uniqueness is byte-exact, not case-folded")
}

func TestCreateHashesPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _, _ := newTestUserService(repo)

	user, err := svc.Create(context.Background(), CreateInput{Name: "Ana", Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)

	stored := repo.users[user.ID]
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))
}

func TestAvatarReferencePersistsAndPatches(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _, _ := newTestUserService(repo)

	user, err := svc.Create(context.Background(), CreateInput{Name: "Ana", Email: "a@x.com", Password: "secret123", Avatar: "avatars/ana.png"})
	require.NoError(t, err)
	assert.Equal(t, "avatars/ana.png", repo.users[user.ID].Avatar)

	// A patch without the field leaves the stored reference alone.
	name := "Ana B"
	_, err = svc.Update(context.Background(), user.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "avatars/ana.png", repo.users[user.ID].Avatar)

	avatar := "avatars/ana-2.png"
	_, err = svc.Update(context.Background(), user.ID, UpdateInput{Avatar: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "avatars/ana-2.png", repo.users[user.ID].Avatar)
}

func TestCreateAttachesInitialRoles(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.roles[1] = "Editor"
	svc, _, _, _ := newTestUserService(repo)

	user, err := svc.Create(context.Background(), CreateInput{Name: "Ana", Email: "a@x.com", Password: "secret123", RoleIDs: []int64{1}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, repo.userRoles[user.ID])
}

func TestCreateRejectsUnknownRoleIDs(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _, _ := newTestUserService(repo)

	_, err := svc.Create(context.Background(), CreateInput{Name: "Ana", Email: "a@x.com", Password: "secret123", RoleIDs: []int64{5}})
	require.Equal(t, shared.KindInvalidReference, shared.KindOf(err))
	assert.Empty(t, repo.users, "validation failures must precede any write")
}

func TestUpdateRoleSyncReplacesAndInvalidates(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.roles[1] = "Editor"
	repo.roles[2] = "Viewer"
	repo.roles[3] = "Auditor"
	svc, inv, _, _ := newTestUserService(repo)

	user, err := svc.Create(context.Background(), CreateInput{Name: "Ana", Email: "a@x.com", Password: "secret123", RoleIDs: []int64{1, 2}})
	require.NoError(t, err)
	inv.userIDs = nil

	roleIDs := []int64{2, 3}
	_, err = svc.Update(context.Background(), user.ID, UpdateInput{RoleIDs: &roleIDs})
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{2, 3}, repo.userRoles[user.ID])
	assert.Equal(t, []int64{user.ID}, inv.userIDs)
}

func TestUpdateUnchangedRolesSkipsInvalidation(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.roles[1] = "Editor"
	svc, inv, _, _ := newTestUserService(repo)

	user, err := svc.Create(context.Background(), CreateInput{Name: "Ana", Email: "a@x.com", Password: "secret123", RoleIDs: []int64{1}})
	require.NoError(t, err)
	inv.userIDs = nil

	roleIDs := []int64{1}
	_, err = svc.Update(context.Background(), user.ID, UpdateInput{RoleIDs: &roleIDs})
	require.NoError(t, err)
	assert.Empty(t, inv.userIDs)
}

func TestUpdateEmailUniquenessExcludesSelf(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _, _ := newTestUserService(repo)

	ana, err := svc.Create(context.Background(), CreateInput{Name: "Ana", Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{Name: "Bo", Email: "b@x.com", Password: "secret123"})
	require.NoError(t, err)

	taken := "b@x.com"
	_, err = svc.Update(context.Background(), ana.ID, UpdateInput{Email: &taken})
	assert.Equal(t, shared.KindDuplicateEmail, shared.KindOf(err))

	same := "a@x.com"
	_, err = svc.Update(context.Background(), ana.ID, UpdateInput{Email: &same})
	assert.NoError(t, err)
}

func TestUpdateAuditRedactsPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _, sink := newTestUserService(repo)

	user, err := svc.Create(context.Background(), CreateInput{Name: "Ana", Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)

	next := "another-secret"
	_, err = svc.Update(context.Background(), user.ID, UpdateInput{Password: &next})
	require.NoError(t, err)

	last := sink.entries[len(sink.entries)-1]
	assert.Equal(t, audit.RedactedValue, last.NewValues["password"])
}

func TestDeleteSoftDeletesAndRevokesSessions(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, inv, revoker, _ := newTestUserService(repo)

	user, err := svc.Create(context.Background(), CreateInput{Name: "Ana", Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)
	repo.sessions[user.ID] = []string{"tok-1", "tok-2"}
	inv.userIDs = nil

	require.NoError(t, svc.Delete(context.Background(), user.ID))

	stored := repo.users[user.ID]
	assert.NotNil(t, stored.DeletedAt, "row is retained with a deletion timestamp")
	assert.ElementsMatch(t, []string{"tok-1", "tok-2"}, revoker.tokens)
	assert.Equal(t, []int64{user.ID}, inv.userIDs)

	_, err = svc.Get(context.Background(), user.ID)
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestDeleteUnknownUser(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _, _ := newTestUserService(repo)
	err := svc.Delete(context.Background(), 42)
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
}
