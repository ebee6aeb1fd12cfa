package marketplace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carbon-scribe/project-portal/dapp-portal-backend/internal/session/sessiontest"
)

func strPtr(s string) *string { return &s }

func u64Ptr(v uint64) *uint64 { return &v }

func TestWizardGating(t *testing.T) {
	w := newWizard()

	view := w.View()
	assert.Equal(t, StepIntro, view.Step)
	assert.Empty(t, view.Label)
	assert.InDelta(t, 100.0/6, view.Progress, 0.001)

	view, err := w.Next()
	require.NoError(t, err)
	assert.Equal(t, StepProject, view.Step)
	assert.Equal(t, "Step 1 of 5", view.Label)
	assert.False(t, view.CanAdvance)

	_, err = w.Next()
	assert.ErrorIs(t, err, ErrStepIncomplete)

	w.Update(WizardUpdate{ProjectName: strPtr("Forest"), ProjectLocation: strPtr("Peru")})
	_, err = w.Next()
	assert.ErrorIs(t, err, ErrStepIncomplete)

	view = w.Update(WizardUpdate{ProjectDescription: strPtr("Trees")})
	assert.True(t, view.CanAdvance)
	view, err = w.Next()
	require.NoError(t, err)
	assert.Equal(t, StepVerification, view.Step)

	w.Update(WizardUpdate{VerificationStandard: strPtr("Gold Standard")})
	_, err = w.Next()
	assert.ErrorIs(t, err, ErrStepIncomplete)
	w.Update(WizardUpdate{ProjectType: strPtr("Forest Conservation")})
	_, err = w.Next()
	require.NoError(t, err)

	_, err = w.Next()
	assert.ErrorIs(t, err, ErrStepIncomplete)
	w.Update(WizardUpdate{CreditsAmount: u64Ptr(10)})
	view, err = w.Next()
	require.NoError(t, err)
	assert.Equal(t, StepPricing, view.Step)

	_, err = w.Next()
	assert.ErrorIs(t, err, ErrStepIncomplete)
	w.Update(WizardUpdate{PricePerCredit: u64Ptr(1_000_000_000)})
	view, err = w.Next()
	require.NoError(t, err)
	assert.Equal(t, StepReview, view.Step)
	assert.Equal(t, "Step 5 of 5", view.Label)
	assert.InDelta(t, 100.0, view.Progress, 0.001)
	assert.True(t, view.CanSubmit)

	view = w.Back()
	assert.Equal(t, StepPricing, view.Step)

	view = w.Reset()
	assert.Equal(t, StepIntro, view.Step)
	assert.Equal(t, MintingData{}, view.Data)
	assert.Equal(t, StepIntro, w.Back().Step)
}

func TestWizardPreset(t *testing.T) {
	w := newWizard()
	view, err := w.ApplyPreset("Solar Farm Development")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), view.Data.CreditsAmount)
	assert.Equal(t, uint64(1_200_000_000), view.Data.PricePerCredit)

	_, err = w.ApplyPreset("Moon Base")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestSubmitWizard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.SubmitWizard(ctx, f.sess)
	assert.ErrorIs(t, err, ErrNotAtReview)

	w := f.service.Wizard(f.sess)
	_, err = w.ApplyPreset("Ocean Cleanup Initiative")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = w.Next()
		require.NoError(t, err)
	}

	f.signer.On("SignAndExecute", mock.Anything, mock.Anything).Return(sessiontest.Success("digest-wiz"), nil).Once()

	result, err := f.service.SubmitWizard(ctx, f.sess)
	require.NoError(t, err)
	assert.Equal(t, "Ocean Cleanup Initiative", result.Listing.ProjectName)
	assert.Equal(t, StepIntro, w.View().Step)
}

func TestWizardMachine(t *testing.T) {
	assert.True(t, wizardMachine.CanTransition(StepIntro, StepProject))
	assert.False(t, wizardMachine.CanTransition(StepIntro, StepReview))
	assert.True(t, wizardMachine.CanTransition(StepReview, StepPricing))
	assert.ElementsMatch(t, []string{StepVerification, StepIntro}, wizardMachine.GetAllowedTransitions(StepProject))
}
