package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"clinicore/internal/core/apperror"
	appctx "clinicore/internal/core/context"
	"clinicore/internal/core/id"
)

type passTx struct{}

func (passTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	byEmail map[string]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *User) error {
	r.byEmail[user.Email] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, userID id.ID) (*User, error) {
	for _, u := range r.byEmail {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, apperror.NewNotFound("user", userID.String())
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, apperror.NewNotFound("user", email)
	}
	return u, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *User) error {
	r.byEmail[user.Email] = user
	return nil
}

func (r *fakeUserRepo) Exists(ctx context.Context, email string) (bool, error) {
	_, ok := r.byEmail[email]
	return ok, nil
}

func newAuthService(repo *fakeUserRepo) *Service {
	return NewService(repo, passTx{}, NewJWTService(DefaultJWTConfig("test-secret")), DefaultServiceConfig())
}

func registeredUser(t *testing.T, svc *Service, email, password string) *User {
	t.Helper()
	user := NewUser(email, "", appctx.RoleFranchise)
	user.FranchiseID = id.New()
	require.NoError(t, svc.Register(context.Background(), user, password))
	return user
}

func TestRegister_HashesPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)

	registeredUser(t, svc, "clerk@clinic.test", "s3cret-pass")

	stored := repo.byEmail["clerk@clinic.test"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "s3cret-pass", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret-pass")))
}

func TestRegister_ShortPasswordRejected(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	user := NewUser("clerk@clinic.test", "", appctx.RoleFranchise)
	user.FranchiseID = id.New()
	err := svc.Register(context.Background(), user, "short")

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())
	registeredUser(t, svc, "clerk@clinic.test", "s3cret-pass")

	again := NewUser("clerk@clinic.test", "", appctx.RoleFranchise)
	again.FranchiseID = id.New()
	err := svc.Register(context.Background(), again, "another-pass")

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}

func TestRegister_FranchiseUserNeedsFranchise(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	err := svc.Register(context.Background(), NewUser("clerk@clinic.test", "", appctx.RoleFranchise), "s3cret-pass")

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestLogin_ReturnsBearerToken(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())
	user := registeredUser(t, svc, "clerk@clinic.test", "s3cret-pass")

	result, loggedIn, err := svc.Login(context.Background(), Credentials{
		Email:    "clerk@clinic.test",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotNil(t, loggedIn.LastLoginAt)
}

func TestLogin_WrongPasswordUnauthorized(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())
	registeredUser(t, svc, "clerk@clinic.test", "s3cret-pass")

	_, _, err := svc.Login(context.Background(), Credentials{
		Email:    "clerk@clinic.test",
		Password: "wrong-pass",
	})

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}

func TestLogin_UnknownEmailLooksLikeBadPassword(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	_, _, err := svc.Login(context.Background(), Credentials{
		Email:    "nobody@clinic.test",
		Password: "whatever-pass",
	})

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	registeredUser(t, svc, "clerk@clinic.test", "s3cret-pass")

	bad := Credentials{Email: "clerk@clinic.test", Password: "wrong-pass"}
	for i := 0; i < DefaultServiceConfig().MaxLoginAttempts; i++ {
		_, _, err := svc.Login(context.Background(), bad)
		require.Error(t, err)
	}

	// even the right password is refused while locked
	_, _, err := svc.Login(context.Background(), Credentials{
		Email:    "clerk@clinic.test",
		Password: "s3cret-pass",
	})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestLogin_DisabledAccountForbidden(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	registeredUser(t, svc, "clerk@clinic.test", "s3cret-pass")
	repo.byEmail["clerk@clinic.test"].IsActive = false

	_, _, err := svc.Login(context.Background(), Credentials{
		Email:    "clerk@clinic.test",
		Password: "s3cret-pass",
	})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}
