package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-vault-sync/internal/config"
	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/store"
	"github.com/MKhiriev/go-vault-sync/internal/utils"
	"github.com/MKhiriev/go-vault-sync/internal/validators"
	"github.com/MKhiriev/go-vault-sync/models"
)

const challengeDataSize = 32

// authService is the concrete implementation of AuthService. Challenges
// are single use: they are deleted when taken, whatever the verdict.
type authService struct {
	users      store.UserRepository
	challenges store.ChallengeRepository
	sessions   store.SessionRepository

	signer    crypto.Signer
	keychain  crypto.KeyChainService
	validator validators.Validator
	ids       *utils.UUIDGenerator

	tokenSignKey    string
	tokenIssuer     string
	tokenDuration   time.Duration
	challengeTTL    time.Duration
	upgradeDuration time.Duration

	now    func() time.Time
	logger *logger.Logger
}

// NewAuthService constructs an AuthService over the account, challenge and
// session repositories.
func NewAuthService(
	users store.UserRepository,
	challenges store.ChallengeRepository,
	sessions store.SessionRepository,
	signer crypto.Signer,
	keychain crypto.KeyChainService,
	cfg config.ServerApp,
	log *logger.Logger,
) AuthService {
	return &authService{
		users:           users,
		challenges:      challenges,
		sessions:        sessions,
		signer:          signer,
		keychain:        keychain,
		validator:       validators.NewAccountValidator(),
		ids:             utils.NewUUIDGenerator(),
		tokenSignKey:    cfg.TokenSignKey,
		tokenIssuer:     cfg.TokenIssuer,
		tokenDuration:   cfg.TokenDuration,
		challengeTTL:    cfg.ChallengeTTL,
		upgradeDuration: cfg.UpgradeDuration,
		now:             time.Now,
		logger:          log.WithComponent("auth-service"),
	}
}

func (a *authService) IssueChallenge(ctx context.Context, req models.ChallengeRequest) (models.Challenge, error) {
	log := logger.FromContext(ctx)

	if err := a.validator.Validate(ctx, req); err != nil {
		return models.Challenge{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	user, err := a.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		log.Err(err).Str("func", "*authService.IssueChallenge").Msg("user search by email failed")
		return models.Challenge{}, fmt.Errorf("user search by email failed: %w", err)
	}

	if user.TOTPSecret != "" {
		if req.TOTPCode == nil {
			return models.Challenge{}, ErrTOTPRequired
		}
		if !a.checkTOTP(ctx, user, *req.TOTPCode) {
			log.Warn().Str("user_id", user.ID).Msg("wrong totp code")
			return models.Challenge{}, ErrInvalidTOTPCode
		}
	}

	challenge, err := a.newChallenge(ctx, user.ID, models.ChallengeAuth, "")
	if err != nil {
		return models.Challenge{}, err
	}
	return models.Challenge{ID: challenge.ID, Data: challenge.Data, HashParams: user.HashParams}, nil
}

func (a *authService) IssueUpgrade(ctx context.Context, p utils.Principal) (models.Challenge, bool, error) {
	if p.AuthLevel >= models.AuthLevelElevated {
		return models.Challenge{}, true, nil
	}

	user, err := a.users.FindUserByID(ctx, p.UserID)
	if err != nil {
		return models.Challenge{}, false, fmt.Errorf("user search by id failed: %w", err)
	}

	challenge, err := a.newChallenge(ctx, user.ID, models.ChallengeUpgrade, p.SessionID)
	if err != nil {
		return models.Challenge{}, false, err
	}
	return models.Challenge{ID: challenge.ID, Data: challenge.Data, HashParams: user.HashParams}, false, nil
}

func (a *authService) newChallenge(ctx context.Context, userID string, kind models.ChallengeKind, sessionID string) (models.StoredChallenge, error) {
	data, err := a.keychain.GenerateSalt(challengeDataSize)
	if err != nil {
		return models.StoredChallenge{}, fmt.Errorf("generate challenge data: %w", err)
	}

	challenge := models.StoredChallenge{
		ID:        a.ids.Generate(),
		UserID:    userID,
		Data:      crypto.Encode(data),
		Kind:      kind,
		SessionID: sessionID,
		ExpiresAt: a.now().Add(a.challengeTTL).UTC(),
	}
	if err = a.challenges.Create(ctx, challenge); err != nil {
		return models.StoredChallenge{}, fmt.Errorf("store challenge: %w", err)
	}
	return challenge, nil
}

func (a *authService) SubmitChallenge(ctx context.Context, id string, signed models.SignedChallenge, upgrade bool, p *utils.Principal) (SubmitResult, error) {
	log := logger.FromContext(ctx).With().Str("func", "*authService.SubmitChallenge").Str("challenge_id", id).Logger()

	if err := a.validator.Validate(ctx, signed); err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	challenge, err := a.challenges.Take(ctx, id)
	if err != nil {
		return SubmitResult{}, err
	}
	if a.now().After(challenge.ExpiresAt) {
		return SubmitResult{}, ErrChallengeExpired
	}

	wantKind := models.ChallengeAuth
	if upgrade {
		wantKind = models.ChallengeUpgrade
	}
	if challenge.Kind != wantKind {
		return SubmitResult{}, ErrChallengeMismatch
	}
	if upgrade && (p == nil || p.SessionID != challenge.SessionID || p.UserID != challenge.UserID) {
		return SubmitResult{}, ErrChallengeMismatch
	}

	user, err := a.users.FindUserByID(ctx, challenge.UserID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("user search by id failed: %w", err)
	}
	if err = a.verify(ctx, user, challenge, signed); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("challenge rejected")
		return SubmitResult{}, err
	}

	res := SubmitResult{Response: models.ChallengeResponse{
		UserID:      user.ID,
		Verified:    user.Verified,
		AccountType: user.AccountType,
	}}

	if upgrade {
		if err = a.sessions.Elevate(ctx, p.SessionID, a.now().Add(a.upgradeDuration).UTC()); err != nil {
			return SubmitResult{}, fmt.Errorf("elevate session: %w", err)
		}
		res.Response.SessionID = p.SessionID
		log.Info().Str("session_id", p.SessionID).Msg("session elevated")
		return res, nil
	}

	now := a.now().UTC()
	session := models.StoredSession{
		ID:         a.ids.Generate(),
		UserID:     user.ID,
		AuthLevel:  models.AuthLevelNormal,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	session.CSRFToken = utils.HashString(session.ID, a.tokenSignKey)
	if err = a.sessions.Create(ctx, session); err != nil {
		return SubmitResult{}, fmt.Errorf("create session: %w", err)
	}

	token, err := utils.GenerateJWTToken(a.tokenIssuer, user.ID, session.ID, a.tokenDuration, a.tokenSignKey)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrTokenCreationFailed, err)
	}

	res.Response.SessionID = session.ID
	res.Token = token
	res.CSRFToken = session.CSRFToken
	log.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("session opened")
	return res, nil
}

func (a *authService) verify(ctx context.Context, user models.User, challenge models.StoredChallenge, signed models.SignedChallenge) error {
	publicKey, err := crypto.Decode(user.AuthKey)
	if err != nil {
		return fmt.Errorf("%w: stored key: %w", ErrInvalidSignature, err)
	}
	data, err := crypto.Decode(challenge.Data)
	if err != nil {
		return fmt.Errorf("%w: challenge data: %w", ErrInvalidSignature, err)
	}
	signature, err := crypto.Decode(signed.Signature)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	ok, err := a.signer.Verify(ctx, publicKey, data, signature)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if !ok {
		return ErrInvalidSignature
	}
	return nil
}

func (a *authService) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	log := logger.FromContext(ctx)

	if err := a.validator.Validate(ctx, req); err != nil {
		log.Err(err).Str("email", req.Email).Msg("invalid registration")
		return models.User{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	user, err := a.users.CreateUser(ctx, models.User{
		ID:         a.ids.Generate(),
		Email:      req.Email,
		AuthKey:    req.Key,
		HashParams: req.HashParams,
	})
	if err != nil {
		log.Err(err).Str("email", req.Email).Msg("user creation ended with error")
		return models.User{}, fmt.Errorf("user creation ended with error: %w", err)
	}

	return user, nil
}

func (a *authService) ConfirmAccount(ctx context.Context, p utils.Principal, userID string) error {
	if userID != p.UserID {
		return ErrUnauthorizedAccessToDifferentUserData
	}
	return a.users.ConfirmUser(ctx, userID)
}

// SendVerificationEmail only records the request. The reference server has
// no mailer.
func (a *authService) SendVerificationEmail(ctx context.Context, p utils.Principal) error {
	user, err := a.users.FindUserByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info().Str("user_id", user.ID).Str("email", user.Email).Msg("verification email requested")
	return nil
}

func (a *authService) WhoAmI(ctx context.Context, p utils.Principal) (models.WhoAmI, error) {
	user, err := a.users.FindUserByID(ctx, p.UserID)
	if err != nil {
		return models.WhoAmI{}, err
	}
	return models.WhoAmI{
		UserID:      user.ID,
		SessionID:   p.SessionID,
		Email:       user.Email,
		Verified:    user.Verified,
		AccountType: user.AccountType,
		AuthLevel:   p.AuthLevel,
		TOTPEnabled: user.TOTPSecret != "",
	}, nil
}

func (a *authService) Authorize(ctx context.Context, tokenString string) (utils.Principal, models.StoredSession, error) {
	token, err := utils.ValidateAndParseJWTToken(tokenString, a.tokenSignKey, a.tokenIssuer)
	if err != nil {
		return utils.Principal{}, models.StoredSession{}, ErrTokenIsExpiredOrInvalid
	}

	session, err := a.sessions.Get(ctx, token.SessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return utils.Principal{}, models.StoredSession{}, ErrTokenIsExpiredOrInvalid
	}
	if err != nil {
		return utils.Principal{}, models.StoredSession{}, err
	}
	if session.UserID != token.UserID {
		return utils.Principal{}, models.StoredSession{}, ErrTokenIsExpiredOrInvalid
	}

	now := a.now()
	if session.AuthLevel >= models.AuthLevelElevated && session.ElevatedUntil != nil && now.After(*session.ElevatedUntil) {
		if err = a.sessions.Downgrade(ctx, session.ID); err != nil {
			return utils.Principal{}, models.StoredSession{}, err
		}
		session.AuthLevel = models.AuthLevelNormal
		session.ElevatedUntil = nil
	}
	if err = a.sessions.Touch(ctx, session.ID, now.UTC()); err != nil {
		a.logger.Warn().Err(err).Str("func", "*authService.Authorize").Msg("session touch failed")
	}

	return utils.Principal{UserID: session.UserID, SessionID: session.ID, AuthLevel: session.AuthLevel}, session, nil
}

func (a *authService) CheckCSRF(session models.StoredSession, token string) error {
	if token == "" || !utils.EqualHash(session.CSRFToken, token) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

func (a *authService) Downgrade(ctx context.Context, p utils.Principal) error {
	return a.sessions.Downgrade(ctx, p.SessionID)
}

func (a *authService) Logout(ctx context.Context, p utils.Principal) error {
	return a.sessions.Delete(ctx, p.UserID, p.SessionID)
}
