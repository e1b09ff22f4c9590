package service

import (
	"context"
	"crypto/ed25519"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-vault-sync/internal/config"
	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/store"
	"github.com/MKhiriev/go-vault-sync/internal/utils"
	"github.com/MKhiriev/go-vault-sync/migrations"
	"github.com/MKhiriev/go-vault-sync/models"
)

var testServerApp = config.ServerApp{
	Development:     true,
	TokenSignKey:    "test-sign-key",
	TokenIssuer:     "go-vault-sync",
	TokenDuration:   time.Hour,
	ChallengeTTL:    time.Minute,
	UpgradeDuration: 5 * time.Minute,
}

type serverFixture struct {
	storages *store.Storages
	services *Services
	auth     *authService
	clock    time.Time
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	db, err := store.NewConnectSQLite(context.Background(), filepath.Join(t.TempDir(), "server.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(migrations.Server))

	storages := store.NewStoragesFromDB(db, logger.Nop())
	services := NewServices(storages, testServerApp, logger.Nop())
	t.Cleanup(services.Close)

	f := &serverFixture{storages: storages, services: services, clock: time.Now()}
	f.auth = services.AuthService.(*authService)
	f.auth.now = func() time.Time { return f.clock }
	return f
}

type testAccount struct {
	user models.User
	priv ed25519.PrivateKey
}

func (f *serverFixture) register(t *testing.T, email string) testAccount {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	user, err := f.services.AuthService.Register(context.Background(), models.RegisterRequest{
		Email:      email,
		Key:        crypto.Encode(pub),
		HashParams: testHashParams(saltOf(1)),
	})
	require.NoError(t, err)
	return testAccount{user: user, priv: priv}
}

func sign(t *testing.T, priv ed25519.PrivateKey, challenge models.Challenge) models.SignedChallenge {
	t.Helper()
	data, err := crypto.Decode(challenge.Data)
	require.NoError(t, err)
	return models.SignedChallenge{Signature: crypto.Encode(ed25519.Sign(priv, data))}
}

func (f *serverFixture) login(t *testing.T, acc testAccount) (SubmitResult, utils.Principal) {
	t.Helper()
	ctx := context.Background()

	challenge, err := f.services.AuthService.IssueChallenge(ctx, models.ChallengeRequest{Email: acc.user.Email})
	require.NoError(t, err)
	res, err := f.services.AuthService.SubmitChallenge(ctx, challenge.ID, sign(t, acc.priv, challenge), false, nil)
	require.NoError(t, err)

	p, _, err := f.services.AuthService.Authorize(ctx, res.Token.SignedString)
	require.NoError(t, err)
	return res, p
}

// ── Challenges ──

func TestAuthService_LoginFlow(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)
	acc := f.register(t, "ada@example.com")

	challenge, err := f.services.AuthService.IssueChallenge(ctx, models.ChallengeRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, acc.user.HashParams, challenge.HashParams)
	data, err := crypto.Decode(challenge.Data)
	require.NoError(t, err)
	assert.Len(t, data, challengeDataSize)

	res, err := f.services.AuthService.SubmitChallenge(ctx, challenge.ID, sign(t, acc.priv, challenge), false, nil)
	require.NoError(t, err)
	assert.Equal(t, acc.user.ID, res.Response.UserID)
	assert.NotEmpty(t, res.Response.SessionID)
	assert.NotEmpty(t, res.Token.SignedString)
	assert.NotEmpty(t, res.CSRFToken)

	p, session, err := f.services.AuthService.Authorize(ctx, res.Token.SignedString)
	require.NoError(t, err)
	assert.Equal(t, utils.Principal{UserID: acc.user.ID, SessionID: res.Response.SessionID, AuthLevel: models.AuthLevelNormal}, p)
	assert.NoError(t, f.services.AuthService.CheckCSRF(session, res.CSRFToken))
	assert.ErrorIs(t, f.services.AuthService.CheckCSRF(session, "forged"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, f.services.AuthService.CheckCSRF(session, ""), ErrCSRFTokenMismatch)

	who, err := f.services.AuthService.WhoAmI(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", who.Email)
	assert.Equal(t, res.Response.SessionID, who.SessionID)
}

func TestAuthService_ChallengeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)
	acc := f.register(t, "ada@example.com")

	challenge, err := f.services.AuthService.IssueChallenge(ctx, models.ChallengeRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	signed := sign(t, acc.priv, challenge)

	_, err = f.services.AuthService.SubmitChallenge(ctx, challenge.ID, signed, false, nil)
	require.NoError(t, err)

	_, err = f.services.AuthService.SubmitChallenge(ctx, challenge.ID, signed, false, nil)
	assert.ErrorIs(t, err, store.ErrChallengeNotFound)
}

func TestAuthService_WrongSignatureConsumesChallenge(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)
	acc := f.register(t, "ada@example.com")

	_, stranger, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	challenge, err := f.services.AuthService.IssueChallenge(ctx, models.ChallengeRequest{Email: acc.user.Email})
	require.NoError(t, err)

	_, err = f.services.AuthService.SubmitChallenge(ctx, challenge.ID, sign(t, stranger, challenge), false, nil)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = f.services.AuthService.SubmitChallenge(ctx, challenge.ID, sign(t, acc.priv, challenge), false, nil)
	assert.ErrorIs(t, err, store.ErrChallengeNotFound)
}

func TestAuthService_ChallengeExpires(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)
	acc := f.register(t, "ada@example.com")

	challenge, err := f.services.AuthService.IssueChallenge(ctx, models.ChallengeRequest{Email: acc.user.Email})
	require.NoError(t, err)

	f.clock = f.clock.Add(testServerApp.ChallengeTTL + time.Second)
	_, err = f.services.AuthService.SubmitChallenge(ctx, challenge.ID, sign(t, acc.priv, challenge), false, nil)
	assert.ErrorIs(t, err, ErrChallengeExpired)
}

func TestAuthService_UnknownEmail(t *testing.T) {
	f := newServerFixture(t)
	_, err := f.services.AuthService.IssueChallenge(context.Background(), models.ChallengeRequest{Email: "nobody@example.com"})
	assert.ErrorIs(t, err, store.ErrNoUserWasFound)
}

func TestAuthService_TOTP(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, err = f.storages.Users.CreateUser(ctx, models.User{
		ID:         "u-totp",
		Email:      "totp@example.com",
		AuthKey:    crypto.Encode(pub),
		HashParams: testHashParams(saltOf(1)),
		TOTPSecret: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ",
	})
	require.NoError(t, err)
	f.clock = time.Unix(1111111109, 0)

	_, err = f.services.AuthService.IssueChallenge(ctx, models.ChallengeRequest{Email: "totp@example.com"})
	assert.ErrorIs(t, err, ErrTOTPRequired)

	wrong := 123456
	_, err = f.services.AuthService.IssueChallenge(ctx, models.ChallengeRequest{Email: "totp@example.com", TOTPCode: &wrong})
	assert.ErrorIs(t, err, ErrInvalidTOTPCode)

	code := 81804
	_, err = f.services.AuthService.IssueChallenge(ctx, models.ChallengeRequest{Email: "totp@example.com", TOTPCode: &code})
	assert.NoError(t, err)
}

func TestValidTOTP(t *testing.T) {
	const secret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

	tests := []struct {
		name string
		at   time.Time
		code int
		want bool
	}{
		{name: "current step", at: time.Unix(59, 0), code: 287082, want: true},
		{name: "previous step accepted", at: time.Unix(89, 0), code: 287082, want: true},
		{name: "two steps late", at: time.Unix(120, 0), code: 287082, want: false},
		{name: "other vector", at: time.Unix(1234567890, 0), code: 5924, want: true},
		{name: "wrong code", at: time.Unix(59, 0), code: 287083, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validTOTP(secret, tt.code, tt.at))
		})
	}

	assert.False(t, validTOTP("not base32!", 287082, time.Unix(59, 0)))
}

func TestAuthService_EnableTOTP(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)
	acc := f.register(t, "ada@example.com")
	_, p := f.login(t, acc)

	_, err := f.services.AuthService.EnableTOTP(ctx, p)
	assert.ErrorIs(t, err, ErrElevationRequired)
	assert.ErrorIs(t, f.services.AuthService.DisableTOTP(ctx, p), ErrElevationRequired)

	p.AuthLevel = models.AuthLevelElevated
	info, err := f.services.AuthService.EnableTOTP(ctx, p)
	require.NoError(t, err)
	assert.NotEmpty(t, info.Secret)
	assert.True(t, strings.HasPrefix(info.URI, "otpauth://totp/"))
	assert.Len(t, info.BackupCodes, backupCodeCount)

	me, err := f.services.AuthService.WhoAmI(ctx, p)
	require.NoError(t, err)
	assert.True(t, me.TOTPEnabled)

	_, err = f.services.AuthService.IssueChallenge(ctx, models.ChallengeRequest{Email: acc.user.Email})
	assert.ErrorIs(t, err, ErrTOTPRequired)

	current, err := totp.GenerateCode(info.Secret, f.clock)
	require.NoError(t, err)
	code, err := strconv.Atoi(current)
	require.NoError(t, err)
	_, err = f.services.AuthService.IssueChallenge(ctx, models.ChallengeRequest{Email: acc.user.Email, TOTPCode: &code})
	require.NoError(t, err)

	backup := info.BackupCodes[0]
	_, err = f.services.AuthService.IssueChallenge(ctx, models.ChallengeRequest{Email: acc.user.Email, TOTPCode: &backup})
	require.NoError(t, err)
	_, err = f.services.AuthService.IssueChallenge(ctx, models.ChallengeRequest{Email: acc.user.Email, TOTPCode: &backup})
	assert.ErrorIs(t, err, ErrInvalidTOTPCode, "backup codes are single use")

	user, err := f.storages.Users.FindUserByID(ctx, acc.user.ID)
	require.NoError(t, err)
	assert.Len(t, user.TOTPBackupCodes, backupCodeCount-1)

	require.NoError(t, f.services.AuthService.DisableTOTP(ctx, p))
	_, err = f.services.AuthService.IssueChallenge(ctx, models.ChallengeRequest{Email: acc.user.Email})
	assert.NoError(t, err)
}

// ── Elevation ──

func TestAuthService_Upgrade(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)
	acc := f.register(t, "ada@example.com")
	res, p := f.login(t, acc)

	challenge, elevated, err := f.services.AuthService.IssueUpgrade(ctx, p)
	require.NoError(t, err)
	require.False(t, elevated)

	_, err = f.services.AuthService.SubmitChallenge(ctx, challenge.ID, sign(t, acc.priv, challenge), false, nil)
	assert.ErrorIs(t, err, ErrChallengeMismatch, "upgrade challenges cannot open sessions")

	challenge, _, err = f.services.AuthService.IssueUpgrade(ctx, p)
	require.NoError(t, err)
	_, err = f.services.AuthService.SubmitChallenge(ctx, challenge.ID, sign(t, acc.priv, challenge), true, &p)
	require.NoError(t, err)

	p, _, err = f.services.AuthService.Authorize(ctx, res.Token.SignedString)
	require.NoError(t, err)
	assert.Equal(t, models.AuthLevelElevated, p.AuthLevel)

	_, elevated, err = f.services.AuthService.IssueUpgrade(ctx, p)
	require.NoError(t, err)
	assert.True(t, elevated)

	f.clock = f.clock.Add(testServerApp.UpgradeDuration + time.Second)
	p, _, err = f.services.AuthService.Authorize(ctx, res.Token.SignedString)
	require.NoError(t, err)
	assert.Equal(t, models.AuthLevelNormal, p.AuthLevel, "expired elevations are dropped")
}

func TestAuthService_UpgradeBoundToSession(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)
	acc := f.register(t, "ada@example.com")
	_, first := f.login(t, acc)
	_, second := f.login(t, acc)

	challenge, _, err := f.services.AuthService.IssueUpgrade(ctx, first)
	require.NoError(t, err)
	_, err = f.services.AuthService.SubmitChallenge(ctx, challenge.ID, sign(t, acc.priv, challenge), true, &second)
	assert.ErrorIs(t, err, ErrChallengeMismatch)
}

// ── Sessions ──

func TestAuthService_LogoutAndDowngrade(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)
	acc := f.register(t, "ada@example.com")
	res, p := f.login(t, acc)

	require.NoError(t, f.services.AuthService.Downgrade(ctx, p))
	require.NoError(t, f.services.AuthService.Logout(ctx, p))

	_, _, err := f.services.AuthService.Authorize(ctx, res.Token.SignedString)
	assert.ErrorIs(t, err, ErrTokenIsExpiredOrInvalid)

	_, _, err = f.services.AuthService.Authorize(ctx, "garbage")
	assert.ErrorIs(t, err, ErrTokenIsExpiredOrInvalid)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	f := newServerFixture(t)
	acc := f.register(t, "ada@example.com")

	_, err := f.services.AuthService.Register(ctx, models.RegisterRequest{
		Email:      "ada@example.com",
		Key:        crypto.Encode(acc.priv.Public().(ed25519.PublicKey)),
		HashParams: testHashParams(saltOf(1)),
	})
	assert.ErrorIs(t, err, store.ErrEmailAlreadyExists)

	_, err = f.services.AuthService.Register(ctx, models.RegisterRequest{Email: "not-an-email", Key: "x"})
	assert.ErrorIs(t, err, ErrInvalidDataProvided)

	p := utils.Principal{UserID: acc.user.ID}
	assert.ErrorIs(t, f.services.AuthService.ConfirmAccount(ctx, p, "someone-else"), ErrUnauthorizedAccessToDifferentUserData)
	require.NoError(t, f.services.AuthService.ConfirmAccount(ctx, p, acc.user.ID))
	require.NoError(t, f.services.AuthService.SendVerificationEmail(ctx, p))
}
