package service

import (
	"context"
	"math"
	"time"

	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/models"
)

// Calibration floors and caps. Memory is in KiB.
const (
	MinTimeCost         uint32 = 3
	MinMemoryCost       uint32 = 128 * 1024
	MaxMemoryCost       uint32 = 512 * 1024
	MaxMemoryMultiplier        = float64(MaxMemoryCost) / float64(MinMemoryCost)

	DefaultTargetHashTime = 500 * time.Millisecond
	calibrationSaltLength = 16
	defaultHashThreads    = 1
)

// BaselineHashParams are the parameters calibration measures and scales.
func BaselineHashParams() models.HashParams {
	return models.HashParams{
		Type:       models.Argon2id,
		TimeCost:   MinTimeCost,
		MemoryCost: MinMemoryCost,
		Threads:    defaultHashThreads,
	}
}

// CalibrationService picks hash parameters that take about a target
// duration on this machine.
type CalibrationService struct {
	hasher   crypto.PasswordHasher
	keychain crypto.KeyChainService
	now      func() time.Time
	logger   *logger.Logger
}

// NewCalibrationService builds a CalibrationService.
func NewCalibrationService(hasher crypto.PasswordHasher, keychain crypto.KeyChainService, log *logger.Logger) *CalibrationService {
	return &CalibrationService{
		hasher:   hasher,
		keychain: keychain,
		now:      time.Now,
		logger:   log.WithComponent("calibration"),
	}
}

// MeasureHashTime hashes password once with params and a fresh random salt
// and returns the wall-clock duration.
func (c *CalibrationService) MeasureHashTime(ctx context.Context, password string, params models.HashParams) (time.Duration, error) {
	salt, err := c.keychain.GenerateSalt(calibrationSaltLength)
	if err != nil {
		return 0, err
	}
	start := c.now()
	if _, err = c.hasher.Hash(ctx, password, salt, params, AuthSeedLength); err != nil {
		return 0, err
	}
	return c.now().Sub(start), nil
}

// Calibrate measures the baseline and returns tuned parameters without a
// salt. A zero target means DefaultTargetHashTime.
func (c *CalibrationService) Calibrate(ctx context.Context, password string, target time.Duration) (models.HashParams, error) {
	if target <= 0 {
		target = DefaultTargetHashTime
	}
	baseline := BaselineHashParams()

	measured, err := c.MeasureHashTime(ctx, password, baseline)
	if err != nil {
		return models.HashParams{}, err
	}
	tuned := TuneHashParams(baseline, measured, target)

	c.logger.Info().Str("func", "CalibrationService.Calibrate").
		Dur("measured", measured).
		Dur("target", target).
		Uint32("time_cost", tuned.TimeCost).
		Uint32("memory_cost", tuned.MemoryCost).
		Msg("hash parameters calibrated")
	return tuned, nil
}

// TuneHashParams scales baseline so that a hash measured at measured takes
// about target. Memory is raised first. Time cost is raised only once the
// memory multiplier is exhausted. The result never drops below the floors
// and never exceeds MaxMemoryCost.
func TuneHashParams(baseline models.HashParams, measured, target time.Duration) models.HashParams {
	tuned := clampHashParams(baseline)
	if measured <= 0 {
		return tuned
	}

	ratio := float64(target) / float64(measured)
	if ratio < 1 {
		return tuned
	}

	baseTime := float64(tuned.TimeCost)
	baseMemory := float64(tuned.MemoryCost)

	if ratio <= MaxMemoryMultiplier {
		tuned.MemoryCost = uint32(math.Floor(ratio * baseMemory))
		return clampHashParams(tuned)
	}

	timeCost := tuned.TimeCost
	for ratio/(float64(timeCost)/baseTime) > MaxMemoryMultiplier {
		timeCost++
	}
	tuned.TimeCost = timeCost
	tuned.MemoryCost = uint32(math.Floor(ratio / (float64(timeCost) / baseTime) * baseMemory))
	return clampHashParams(tuned)
}

// PredictHashTime estimates the duration of params from a measurement of
// baseline, assuming time scales linearly with both costs.
func PredictHashTime(baseline models.HashParams, measured time.Duration, params models.HashParams) time.Duration {
	if baseline.TimeCost == 0 || baseline.MemoryCost == 0 {
		return measured
	}
	scale := float64(params.TimeCost) / float64(baseline.TimeCost) *
		float64(params.MemoryCost) / float64(baseline.MemoryCost)
	return time.Duration(float64(measured) * scale)
}

func clampHashParams(p models.HashParams) models.HashParams {
	if p.TimeCost < MinTimeCost {
		p.TimeCost = MinTimeCost
	}
	if p.MemoryCost < MinMemoryCost {
		p.MemoryCost = MinMemoryCost
	}
	if p.MemoryCost > MaxMemoryCost {
		p.MemoryCost = MaxMemoryCost
	}
	if p.Threads == 0 {
		p.Threads = defaultHashThreads
	}
	if p.Type == "" {
		p.Type = models.Argon2id
	}
	return p
}
