package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/shared"
)

type fakeRepo struct {
	users  map[int64]*User
	hashes map[int64]string
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[int64]*User), hashes: make(map[int64]string)}
}

func (f *fakeRepo) Insert(ctx context.Context, u *User, passwordHash string) error {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return shared.ErrDuplicate
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.IsActive = true
	copied := *u
	f.users[u.ID] = &copied
	f.hashes[u.ID] = passwordHash
	return nil
}

func (f *fakeRepo) Update(ctx context.Context, u *User) error {
	stored, ok := f.users[u.ID]
	if !ok || stored.OwnerID != u.OwnerID {
		return shared.ErrNotFound
	}
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, ownerID, id int64) (*User, error) {
	u, ok := f.users[id]
	if !ok || u.OwnerID != ownerID {
		return nil, shared.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeRepo) List(ctx context.Context, ownerID int64) ([]User, error) {
	var out []User
	for _, u := range f.users {
		if u.OwnerID == ownerID {
			out = append(out, *u)
		}
	}
	return out, nil
}

// seed a root account whose ID equals the owner scope, the way the
// organization owner row looks in the database.
func seedRoot(t *testing.T, repo *fakeRepo) *User {
	t.Helper()
	root := &User{Email: "root@acme.test", Name: "Root", Role: "admin", OwnerID: 1}
	require.NoError(t, repo.Insert(context.Background(), root, "x"))
	require.Equal(t, int64(1), root.ID)
	return root
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, 1, CreateInput{Email: "", Name: "Ana", Password: "longenough"})
	require.ErrorIs(t, err, shared.ErrInvalid)

	_, err = svc.Create(ctx, 1, 1, CreateInput{Email: "ana@acme.test", Name: "Ana", Password: "short"})
	require.ErrorIs(t, err, shared.ErrInvalid)
}

func TestCreateNormalizesEmailAndDefaultsRole(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	u, err := svc.Create(context.Background(), 1, 1, CreateInput{
		Email:    "  Ana@Acme.Test ",
		Name:     "Ana",
		Password: "longenough",
	})
	require.NoError(t, err)
	require.Equal(t, "ana@acme.test", u.Email)
	require.Equal(t, "staff", u.Role)
	require.Equal(t, int64(1), u.OwnerID)
	require.True(t, u.IsActive)
	require.NotEmpty(t, repo.hashes[u.ID])
	require.NotEqual(t, "longenough", repo.hashes[u.ID])
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, 1, CreateInput{Email: "ana@acme.test", Name: "Ana", Password: "longenough"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, 1, 1, CreateInput{Email: "ANA@acme.test", Name: "Dup", Password: "longenough"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestRootCannotDeactivateItself(t *testing.T) {
	repo := newFakeRepo()
	root := seedRoot(t, repo)
	svc := NewService(repo, nil)

	inactive := false
	_, err := svc.Update(context.Background(), 1, root.ID, root.ID, UpdateInput{IsActive: &inactive})
	require.ErrorIs(t, err, shared.ErrInvalid)

	got, err := svc.Get(context.Background(), 1, root.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)
}

func TestDeactivateStaffAccount(t *testing.T) {
	repo := newFakeRepo()
	seedRoot(t, repo)
	svc := NewService(repo, nil)
	ctx := context.Background()

	staff, err := svc.Create(ctx, 1, 1, CreateInput{Email: "bo@acme.test", Name: "Bo", Password: "longenough"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(ctx, 1, 1, staff.ID, UpdateInput{IsActive: &inactive})
	require.NoError(t, err)
	require.False(t, updated.IsActive)
}

func TestUpdateScopedToOwner(t *testing.T) {
	repo := newFakeRepo()
	seedRoot(t, repo)
	svc := NewService(repo, nil)
	ctx := context.Background()

	staff, err := svc.Create(ctx, 1, 1, CreateInput{Email: "bo@acme.test", Name: "Bo", Password: "longenough"})
	require.NoError(t, err)

	name := "Robert"
	_, err = svc.Update(ctx, 99, 99, staff.ID, UpdateInput{Name: &name})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAuditOnCreate(t *testing.T) {
	repo := newFakeRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit)

	u, err := svc.Create(context.Background(), 1, 1, CreateInput{Email: "ana@acme.test", Name: "Ana", Password: "longenough"})
	require.NoError(t, err)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "user:create", audit.logs[0].Action)
	require.Equal(t, u.Email, audit.logs[0].Meta["email"])
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}
