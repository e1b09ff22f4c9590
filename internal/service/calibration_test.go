package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-vault-sync/internal/crypto"
	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/models"
)

// clockHasher advances a fake clock by cost on every hash.
type clockHasher struct {
	now    time.Time
	cost   time.Duration
	err    error
	params []models.HashParams
	salts  [][]byte
}

func (h *clockHasher) Hash(_ context.Context, _ string, salt []byte, params models.HashParams, hashLen uint32) ([]byte, error) {
	h.params = append(h.params, params)
	h.salts = append(h.salts, salt)
	if h.err != nil {
		return nil, h.err
	}
	h.now = h.now.Add(h.cost)
	return make([]byte, hashLen), nil
}

func newTestCalibration(h *clockHasher) *CalibrationService {
	c := NewCalibrationService(h, crypto.NewKeyChainService(), logger.Nop())
	c.now = func() time.Time { return h.now }
	return c
}

// ── TuneHashParams ──

func TestTuneHashParams(t *testing.T) {
	base := BaselineHashParams()

	tests := []struct {
		name     string
		measured time.Duration
		target   time.Duration
		wantTime uint32
		wantMem  uint32
	}{
		{name: "slower than target keeps baseline", measured: time.Second, target: 500 * time.Millisecond, wantTime: 3, wantMem: MinMemoryCost},
		{name: "exactly on target", measured: 500 * time.Millisecond, target: 500 * time.Millisecond, wantTime: 3, wantMem: MinMemoryCost},
		{name: "double memory", measured: 250 * time.Millisecond, target: 500 * time.Millisecond, wantTime: 3, wantMem: 2 * MinMemoryCost},
		{name: "memory multiplier exhausted", measured: 125 * time.Millisecond, target: 500 * time.Millisecond, wantTime: 3, wantMem: MaxMemoryCost},
		{name: "time cost raised", measured: 62500 * time.Microsecond, target: 500 * time.Millisecond, wantTime: 6, wantMem: MaxMemoryCost},
		{name: "zero measurement", measured: 0, target: 500 * time.Millisecond, wantTime: 3, wantMem: MinMemoryCost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TuneHashParams(base, tt.measured, tt.target)
			assert.Equal(t, tt.wantTime, got.TimeCost)
			assert.Equal(t, tt.wantMem, got.MemoryCost)
			assert.Equal(t, base.Type, got.Type)
			assert.Equal(t, base.Threads, got.Threads)
		})
	}
}

func TestTuneHashParams_Floors(t *testing.T) {
	weak := models.HashParams{TimeCost: 1, MemoryCost: 1024}

	got := TuneHashParams(weak, time.Second, time.Millisecond)
	assert.Equal(t, MinTimeCost, got.TimeCost)
	assert.Equal(t, MinMemoryCost, got.MemoryCost)
	assert.Equal(t, models.Argon2id, got.Type)
	assert.EqualValues(t, 1, got.Threads)
}

func TestTuneHashParams_Monotonic(t *testing.T) {
	base := BaselineHashParams()
	measured := 40 * time.Millisecond

	var prevCost float64
	var prevTime uint32
	for target := 10 * time.Millisecond; target <= 5*time.Second; target += 10 * time.Millisecond {
		got := TuneHashParams(base, measured, target)

		require.GreaterOrEqual(t, got.TimeCost, MinTimeCost, target)
		require.GreaterOrEqual(t, got.MemoryCost, MinMemoryCost, target)
		require.LessOrEqual(t, got.MemoryCost, MaxMemoryCost, target)
		require.GreaterOrEqual(t, got.TimeCost, prevTime, "time cost never decreases as the target grows: %s", target)

		cost := float64(got.TimeCost) * float64(got.MemoryCost)
		require.GreaterOrEqual(t, cost, prevCost, "work never decreases as the target grows: %s", target)
		prevCost, prevTime = cost, got.TimeCost
	}
}

func TestTuneHashParams_HitsTarget(t *testing.T) {
	base := BaselineHashParams()
	measured := 50 * time.Millisecond

	for _, target := range []time.Duration{50 * time.Millisecond, 120 * time.Millisecond, 200 * time.Millisecond, 330 * time.Millisecond, time.Second, 3 * time.Second} {
		got := TuneHashParams(base, measured, target)
		predicted := PredictHashTime(base, measured, got)
		assert.InEpsilon(t, float64(target), float64(predicted), 0.01, "target %s predicted %s", target, predicted)
	}
}

func TestPredictHashTime(t *testing.T) {
	base := BaselineHashParams()

	assert.Equal(t, 100*time.Millisecond, PredictHashTime(base, 100*time.Millisecond, base))

	doubled := base
	doubled.TimeCost *= 2
	doubled.MemoryCost *= 2
	assert.Equal(t, 400*time.Millisecond, PredictHashTime(base, 100*time.Millisecond, doubled))

	assert.Equal(t, time.Second, PredictHashTime(models.HashParams{}, time.Second, base))
}

// ── Calibrate ──

func TestCalibrationService_Calibrate(t *testing.T) {
	h := &clockHasher{now: time.Unix(0, 0), cost: 250 * time.Millisecond}
	c := newTestCalibration(h)

	got, err := c.Calibrate(context.Background(), "pw", time.Second)
	require.NoError(t, err)

	assert.Equal(t, MinTimeCost, got.TimeCost)
	assert.Equal(t, MaxMemoryCost, got.MemoryCost)
	assert.Empty(t, got.Salt)

	require.Len(t, h.params, 1)
	assert.Equal(t, BaselineHashParams(), h.params[0])
	assert.Len(t, h.salts[0], 16)
}

func TestCalibrationService_Calibrate_DefaultTarget(t *testing.T) {
	h := &clockHasher{now: time.Unix(0, 0), cost: 250 * time.Millisecond}
	c := newTestCalibration(h)

	got, err := c.Calibrate(context.Background(), "pw", 0)
	require.NoError(t, err)
	assert.Equal(t, 2*MinMemoryCost, got.MemoryCost)
}

func TestCalibrationService_MeasureHashTime_FreshSalt(t *testing.T) {
	h := &clockHasher{now: time.Unix(0, 0), cost: 30 * time.Millisecond}
	c := newTestCalibration(h)
	ctx := context.Background()

	d, err := c.MeasureHashTime(ctx, "pw", BaselineHashParams())
	require.NoError(t, err)
	assert.Equal(t, 30*time.Millisecond, d)

	_, err = c.MeasureHashTime(ctx, "pw", BaselineHashParams())
	require.NoError(t, err)

	require.Len(t, h.salts, 2)
	assert.NotEqual(t, h.salts[0], h.salts[1])
}

func TestCalibrationService_Calibrate_HashError(t *testing.T) {
	boom := errors.New("boom")
	c := newTestCalibration(&clockHasher{err: boom})

	_, err := c.Calibrate(context.Background(), "pw", time.Second)
	assert.ErrorIs(t, err, boom)
}
