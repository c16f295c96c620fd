package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/deepdive-club/deepdive-api/internal/common"
	"github.com/deepdive-club/deepdive-api/internal/dbx"
	"github.com/deepdive-club/deepdive-api/internal/logging"
	"github.com/deepdive-club/deepdive-api/internal/server/auth"
	"github.com/deepdive-club/deepdive-api/internal/server/models"
	documentsrepo "github.com/deepdive-club/deepdive-api/internal/server/repositories/documents"
	passwordresetsrepo "github.com/deepdive-club/deepdive-api/internal/server/repositories/passwordresets"
	refreshtokensrepo "github.com/deepdive-club/deepdive-api/internal/server/repositories/refreshtokens"
	registrationrequestsrepo "github.com/deepdive-club/deepdive-api/internal/server/repositories/registrationrequests"
	usersrepo "github.com/deepdive-club/deepdive-api/internal/server/repositories/users"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func newTokenManager() *auth.Manager {
	return auth.NewManager([]byte("test-secret"), "deepdive-api", "deepdive-frontend", time.Minute)
}

func newAuthService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *AuthService {
	t.Helper()
	return NewAuthService(db, rm, newTokenManager(), testLogger())
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	byEmail    *models.User
	byEmailErr error

	byEmailAny    *models.User
	byEmailAnyErr error

	byUserName    *models.User
	byUserNameErr error

	byID    *models.User
	byIDErr error

	roles    []string
	rolesErr error

	addToRoleErr error
	addedRole    string

	setConfirmedErr error
	confirmedID     string

	updateHashErr error
	updatedHash   string

	setDeletedErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}
func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	return f.byEmail, nil
}
func (f *fakeUsersRepo) GetByEmailAny(ctx context.Context, email string) (*models.User, error) {
	if f.byEmailAnyErr != nil {
		return nil, f.byEmailAnyErr
	}
	return f.byEmailAny, nil
}
func (f *fakeUsersRepo) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	if f.byUserNameErr != nil {
		return nil, f.byUserNameErr
	}
	return f.byUserName, nil
}
func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byID, nil
}
func (f *fakeUsersRepo) GetRoles(ctx context.Context, userID string) ([]string, error) {
	if f.rolesErr != nil {
		return nil, f.rolesErr
	}
	return f.roles, nil
}
func (f *fakeUsersRepo) AddToRole(ctx context.Context, userID string, role string) error {
	f.addedRole = role
	return f.addToRoleErr
}
func (f *fakeUsersRepo) SetEmailConfirmed(ctx context.Context, userID string) error {
	f.confirmedID = userID
	return f.setConfirmedErr
}
func (f *fakeUsersRepo) UpdatePasswordHash(ctx context.Context, userID string, hash string) error {
	f.updatedHash = hash
	return f.updateHashErr
}
func (f *fakeUsersRepo) SetDeleted(ctx context.Context, userID string, deleted bool) error {
	return f.setDeletedErr
}

type fakeRefreshRepo struct {
	createErr     error
	createdTokens []string

	isValidOut bool
	isValidErr error

	revokeOut    bool
	revokeErr    error
	revokedOld   string
	revokedByNew string

	findOut *models.RefreshToken
	findErr error
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.createdTokens = append(f.createdTokens, token)
	return nil
}
func (f *fakeRefreshRepo) IsValid(ctx context.Context, userID string, token string) (bool, error) {
	if f.isValidErr != nil {
		return false, f.isValidErr
	}
	return f.isValidOut, nil
}
func (f *fakeRefreshRepo) Revoke(ctx context.Context, userID string, oldToken string, newToken string) (bool, error) {
	if f.revokeErr != nil {
		return false, f.revokeErr
	}
	f.revokedOld = oldToken
	f.revokedByNew = newToken
	return f.revokeOut, nil
}
func (f *fakeRefreshRepo) Find(ctx context.Context, userID string, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

type fakeRegistrationRequestsRepo struct {
	addErr    error
	addedUser string
}

func (f *fakeRegistrationRequestsRepo) Add(ctx context.Context, userID string) error {
	f.addedUser = userID
	return f.addErr
}
func (f *fakeRegistrationRequestsRepo) GetByUserID(ctx context.Context, userID string) (*models.RegistrationRequest, error) {
	return nil, common.ErrNotFound
}
func (f *fakeRegistrationRequestsRepo) UpdateStatus(ctx context.Context, requestID int64, status models.RegistrationStatus, adminComment *string) error {
	return nil
}

type fakePasswordResetsRepo struct {
	addErr     error
	addedToken string

	findOut *models.PasswordReset
	findErr error

	markChangedOut bool
	markChangedErr error
}

func (f *fakePasswordResetsRepo) Add(ctx context.Context, userID string, token string, validity time.Duration) error {
	f.addedToken = token
	return f.addErr
}
func (f *fakePasswordResetsRepo) Find(ctx context.Context, userID string, token string) (*models.PasswordReset, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}
func (f *fakePasswordResetsRepo) MarkChanged(ctx context.Context, userID string, token string) (bool, error) {
	if f.markChangedErr != nil {
		return false, f.markChangedErr
	}
	return f.markChangedOut, nil
}

type fakeRepoManager struct {
	u  *fakeUsersRepo
	r  *fakeRefreshRepo
	rr *fakeRegistrationRequestsRepo
	pr *fakePasswordResetsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error         { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository               { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) RegistrationRequests(db dbx.DBTX) registrationrequestsrepo.Repository {
	return m.rr
}
func (m *fakeRepoManager) PasswordResets(db dbx.DBTX) passwordresetsrepo.Repository { return m.pr }
func (m *fakeRepoManager) Documents(db dbx.DBTX) documentsrepo.Repository           { return nil }

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := usersrepo.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	return h
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{
			byEmailAny: &models.User{ID: "u1", Email: "a@b.c", PasswordHash: hashOf(t, "pwd12345")},
			roles:      []string{"CandidateUser"},
		},
		r: &fakeRefreshRepo{},
	}
	s := newAuthService(t, db, rm)

	pair, err := s.Login(context.Background(), "a@b.c", "pwd12345")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}
	if len(rm.r.createdTokens) != 1 || rm.r.createdTokens[0] != pair.RefreshToken {
		t.Fatalf("refresh token not stored: %v", rm.r.createdTokens)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLogin_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	// unknown email → invalid credentials
	rmNF := &fakeRepoManager{
		u: &fakeUsersRepo{byEmailAnyErr: common.ErrNotFound},
		r: &fakeRefreshRepo{},
	}
	if _, err := newAuthService(t, db, rmNF).Login(context.Background(), "ghost@x", "p"); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("notfound: want ErrInvalidCredentials, got %v", err)
	}

	// soft-deleted account is reported distinctly
	rmDel := &fakeRepoManager{
		u: &fakeUsersRepo{byEmailAny: &models.User{ID: "u1", Deleted: true, PasswordHash: hashOf(t, "pwd12345")}},
		r: &fakeRefreshRepo{},
	}
	if _, err := newAuthService(t, db, rmDel).Login(context.Background(), "a@b.c", "pwd12345"); !errors.Is(err, common.ErrAccountDeleted) {
		t.Fatalf("deleted: want ErrAccountDeleted, got %v", err)
	}

	// wrong password → invalid credentials
	rmWP := &fakeRepoManager{
		u: &fakeUsersRepo{byEmailAny: &models.User{ID: "u1", PasswordHash: hashOf(t, "right")}},
		r: &fakeRefreshRepo{},
	}
	if _, err := newAuthService(t, db, rmWP).Login(context.Background(), "a@b.c", "wrong"); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", err)
	}
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{
			byUserNameErr: common.ErrNotFound,
			byEmailErr:    common.ErrNotFound,
			createOut:     &models.User{ID: "u42", UserName: "alice", Email: "alice@x"},
		},
		r:  &fakeRefreshRepo{},
		rr: &fakeRegistrationRequestsRepo{},
	}
	s := newAuthService(t, db, rm)

	pair, err := s.Register(context.Background(), RegisterInput{
		UserName: "alice", Email: "alice@x", Password: "pwd12345",
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}
	if rm.u.addedRole != "CandidateUser" {
		t.Fatalf("role assigned: %q", rm.u.addedRole)
	}
	if rm.rr.addedUser != "u42" {
		t.Fatalf("registration request user: %q", rm.rr.addedUser)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRegister_UsernameTaken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{
		u:  &fakeUsersRepo{byUserName: &models.User{ID: "other"}},
		r:  &fakeRefreshRepo{},
		rr: &fakeRegistrationRequestsRepo{},
	}
	_, err := newAuthService(t, db, rm).Register(context.Background(), RegisterInput{
		UserName: "alice", Email: "alice@x", Password: "p",
	})
	if !errors.Is(err, common.ErrUsernameTaken) {
		t.Fatalf("want ErrUsernameTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	// username check passes, email check hits an existing account
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{
			byUserNameErr: common.ErrNotFound,
			byEmail:       &models.User{ID: "other"},
		},
		r:  &fakeRefreshRepo{},
		rr: &fakeRegistrationRequestsRepo{},
	}
	_, err := newAuthService(t, db, rm).Register(context.Background(), RegisterInput{
		UserName: "alice", Email: "alice@x", Password: "p",
	})
	if !errors.Is(err, common.ErrEmailTaken) {
		t.Fatalf("want ErrEmailTaken, got %v", err)
	}
}

func TestRegister_CreateErr_RollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{
			byUserNameErr: common.ErrNotFound,
			byEmailErr:    common.ErrNotFound,
			createErr:     errBoom{},
		},
		r:  &fakeRefreshRepo{},
		rr: &fakeRegistrationRequestsRepo{},
	}
	_, err := newAuthService(t, db, rm).Register(context.Background(), RegisterInput{
		UserName: "alice", Email: "alice@x", Password: "p",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// --- Refresh ---

// issueAccessToken mints a real signed token for the user so the refresh
// flow can extract the subject from it.
func issueAccessToken(t *testing.T, user *models.User) string {
	t.Helper()
	m := newTokenManager()
	token, err := m.Generate(m.BuildClaims(user, []string{"CandidateUser"}))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	return token
}

func TestRefresh_Success_Rotates(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	user := &models.User{ID: "u1", Email: "a@b.c", EmailConfirmed: true}
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byID: user, roles: []string{"CandidateUser"}},
		r: &fakeRefreshRepo{isValidOut: true, revokeOut: true},
	}
	s := newAuthService(t, db, rm)

	pair, err := s.Refresh(context.Background(), issueAccessToken(t, user), "old-refresh")
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if pair.RefreshToken == "" || pair.RefreshToken == "old-refresh" {
		t.Fatalf("refresh token not rotated: %+v", pair)
	}
	if rm.r.revokedOld != "old-refresh" || rm.r.revokedByNew != pair.RefreshToken {
		t.Fatalf("revocation chain: old=%q new=%q", rm.r.revokedOld, rm.r.revokedByNew)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRefresh_BadSignature(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	forged := auth.NewManager([]byte("other-secret"), "deepdive-api", "deepdive-frontend", time.Minute)
	token, err := forged.Generate(forged.BuildClaims(&models.User{ID: "u1"}, nil))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{}}
	if _, err := newAuthService(t, db, rm).Refresh(context.Background(), token, "rt"); !errors.Is(err, common.ErrInvalidSignature) {
		t.Fatalf("want ErrInvalidSignature, got %v", err)
	}
}

func TestRefresh_UnknownUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	user := &models.User{ID: "gone"}
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byIDErr: common.ErrNotFound},
		r: &fakeRefreshRepo{},
	}
	if _, err := newAuthService(t, db, rm).Refresh(context.Background(), issueAccessToken(t, user), "rt"); !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestRefresh_InvalidRefreshToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	user := &models.User{ID: "u1"}
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byID: user},
		r: &fakeRefreshRepo{isValidOut: false},
	}
	if _, err := newAuthService(t, db, rm).Refresh(context.Background(), issueAccessToken(t, user), "revoked-rt"); !errors.Is(err, common.ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_AlreadyRotated_StillSucceeds(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	user := &models.User{ID: "u1"}
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byID: user},
		r: &fakeRefreshRepo{isValidOut: true, revokeOut: false},
	}
	pair, err := newAuthService(t, db, rm).Refresh(context.Background(), issueAccessToken(t, user), "rt")
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}
}

// --- ValidatePassword ---

func TestValidatePassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rmOK := &fakeRepoManager{
		u: &fakeUsersRepo{byEmail: &models.User{ID: "u1", PasswordHash: hashOf(t, "right")}},
		r: &fakeRefreshRepo{},
	}
	if err := newAuthService(t, db, rmOK).ValidatePassword(context.Background(), "a@b.c", "right"); err != nil {
		t.Fatalf("valid: %v", err)
	}
	if err := newAuthService(t, db, rmOK).ValidatePassword(context.Background(), "a@b.c", "wrong"); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("wrong: want ErrInvalidCredentials, got %v", err)
	}

	rmNF := &fakeRepoManager{
		u: &fakeUsersRepo{byEmailErr: common.ErrNotFound},
		r: &fakeRefreshRepo{},
	}
	if err := newAuthService(t, db, rmNF).ValidatePassword(context.Background(), "ghost@x", "p"); !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("notfound: want ErrUserNotFound, got %v", err)
	}
}

// --- ConfirmEmail ---

func TestConfirmEmail(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byID: &models.User{ID: "u1", Email: "a@b.c"}},
		r: &fakeRefreshRepo{},
	}
	s := newAuthService(t, db, rm)
	if err := s.ConfirmEmail(context.Background(), "u1", "a@b.c"); err != nil {
		t.Fatalf("ConfirmEmail error: %v", err)
	}
	if rm.u.confirmedID != "u1" {
		t.Fatalf("confirmed id: %q", rm.u.confirmedID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestConfirmEmail_Errors(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	// email does not match the account
	mock.ExpectBegin()
	mock.ExpectRollback()
	rmMismatch := &fakeRepoManager{
		u: &fakeUsersRepo{byID: &models.User{ID: "u1", Email: "a@b.c"}},
		r: &fakeRefreshRepo{},
	}
	if err := newAuthService(t, db, rmMismatch).ConfirmEmail(context.Background(), "u1", "other@x"); !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("mismatch: want ErrUserNotFound, got %v", err)
	}

	// confirming twice
	mock.ExpectBegin()
	mock.ExpectRollback()
	rmDone := &fakeRepoManager{
		u: &fakeUsersRepo{byID: &models.User{ID: "u1", Email: "a@b.c", EmailConfirmed: true}},
		r: &fakeRefreshRepo{},
	}
	if err := newAuthService(t, db, rmDone).ConfirmEmail(context.Background(), "u1", "a@b.c"); !errors.Is(err, common.ErrEmailAlreadyConfirmed) {
		t.Fatalf("twice: want ErrEmailAlreadyConfirmed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
