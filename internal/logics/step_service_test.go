package logics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskly-server/internal/ai/models"
	"taskly-server/internal/utils"
)

func newTestStepService() *StepService {
	return NewStepService(utils.NewUniqueIDService(), zap.NewNop())
}

func sampleSteps() []models.Step {
	return []models.Step{
		{ID: "s1", Title: "1. Research books", Body: "(1 hour 30 minutes)"},
		{ID: "s2", Title: "2. Choose one", Body: "(15 minutes)", Bullets: []string{"Check reviews first"}},
		{ID: "s3", Title: "3. Order it", Body: "(30 minutes)"},
	}
}

func TestStepServiceSetField(t *testing.T) {
	svc := newTestStepService()
	steps := sampleSteps()

	require.NoError(t, svc.SetTitle(steps, 0, "1. Research history books"))
	assert.Equal(t, "1. Research history books", steps[0].Title)

	require.NoError(t, svc.SetDuration(steps, 1, "(45 minutes)"))
	assert.Equal(t, "(45 minutes)", steps[1].Body)

	err := svc.SetField(steps, 0, "color", "red")
	assert.Error(t, err)

	assert.ErrorIs(t, svc.SetTitle(steps, 3, "x"), ErrStepIndexOutOfRange)
	assert.ErrorIs(t, svc.SetDuration(steps, -1, "x"), ErrStepIndexOutOfRange)
}

func TestStepServiceSetBullets(t *testing.T) {
	svc := newTestStepService()
	steps := sampleSteps()

	require.NoError(t, svc.SetBullets(steps, 0, []string{"Start at the library"}))
	assert.Equal(t, []string{"Start at the library"}, steps[0].Bullets)

	assert.ErrorIs(t, svc.SetBullets(steps, 5, nil), ErrStepIndexOutOfRange)
}

func TestStepServiceAddStep(t *testing.T) {
	svc := newTestStepService()

	steps, err := svc.AddStep(sampleSteps())
	require.NoError(t, err)
	require.Len(t, steps, 4)

	added := steps[3]
	assert.Equal(t, "4. ", added.Title)
	assert.Equal(t, StepPlaceholderBody, added.Body)
	assert.NotEmpty(t, added.ID)

	// The placeholder parses to zero, so a fresh step fails validation
	// until its duration is edited.
	assert.ErrorIs(t, svc.ValidateStep(added), ErrZeroDuration)
}

func TestStepServiceDeleteStep(t *testing.T) {
	svc := newTestStepService()

	steps, err := svc.DeleteStep(sampleSteps(), 1)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, "1. Research books", steps[0].Title)
	assert.Equal(t, "2. Order it", steps[1].Title)
	assert.Equal(t, "s3", steps[1].ID)

	_, err = svc.DeleteStep(sampleSteps(), 3)
	assert.ErrorIs(t, err, ErrStepIndexOutOfRange)
}

func TestStepServiceReorder(t *testing.T) {
	svc := newTestStepService()

	t.Run("moves forward and renumbers", func(t *testing.T) {
		steps, err := svc.Reorder(sampleSteps(), 0, 2)
		require.NoError(t, err)
		require.Len(t, steps, 3)
		assert.Equal(t, "1. Choose one", steps[0].Title)
		assert.Equal(t, "2. Order it", steps[1].Title)
		assert.Equal(t, "3. Research books", steps[2].Title)
	})

	t.Run("moves backward and renumbers", func(t *testing.T) {
		steps, err := svc.Reorder(sampleSteps(), 2, 0)
		require.NoError(t, err)
		assert.Equal(t, "1. Order it", steps[0].Title)
		assert.Equal(t, "2. Research books", steps[1].Title)
		assert.Equal(t, "3. Choose one", steps[2].Title)
	})

	t.Run("keeps bullets and ids with their step", func(t *testing.T) {
		steps, err := svc.Reorder(sampleSteps(), 1, 0)
		require.NoError(t, err)
		assert.Equal(t, "s2", steps[0].ID)
		assert.Equal(t, []string{"Check reviews first"}, steps[0].Bullets)
	})

	t.Run("rejects out of range positions", func(t *testing.T) {
		_, err := svc.Reorder(sampleSteps(), 0, 3)
		assert.ErrorIs(t, err, ErrStepIndexOutOfRange)
		_, err = svc.Reorder(sampleSteps(), -1, 0)
		assert.ErrorIs(t, err, ErrStepIndexOutOfRange)
	})
}

func TestStepServiceToggleComplete(t *testing.T) {
	svc := newTestStepService()
	steps := sampleSteps()

	require.NoError(t, svc.ToggleComplete(steps, 0))
	assert.True(t, steps[0].Completed)

	require.NoError(t, svc.ToggleComplete(steps, 0))
	assert.False(t, steps[0].Completed)

	assert.ErrorIs(t, svc.ToggleComplete(steps, 9), ErrStepIndexOutOfRange)
}

func TestStepServiceTotalMinutes(t *testing.T) {
	svc := newTestStepService()
	steps := sampleSteps()
	assert.Equal(t, 135, svc.TotalMinutes(steps))

	// Totals follow edits immediately.
	require.NoError(t, svc.SetDuration(steps, 2, "(1 hour)"))
	assert.Equal(t, 165, svc.TotalMinutes(steps))
}

func TestStepServiceValidateStep(t *testing.T) {
	svc := newTestStepService()

	assert.NoError(t, svc.ValidateStep(models.Step{Body: "(45 minutes)"}))
	assert.ErrorIs(t, svc.ValidateStep(models.Step{Body: "(0 hours 0 minutes)"}), ErrZeroDuration)
	assert.ErrorIs(t, svc.ValidateStep(models.Step{Body: "soon"}), ErrZeroDuration)
}
