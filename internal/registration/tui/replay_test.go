package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vatfiler/internal/registration/models"
)

func TestReplayReachesTheSubmission(t *testing.T) {
	sub := models.Submission{
		Mode:            models.ModeAgent,
		Email:           "desk@practice.example",
		ConfirmEmail:    "desk@practice.example",
		Password:        "correct horse",
		ConfirmPassword: "correct horse",
		ContactName:     "Grace",
		Phone:           "+44 20 7946 0000",
		SoftwareITSA:    true,
		Agreement:       true,
	}

	events := Replay(sub)
	require.NotEmpty(t, events)
	assert.Equal(t, models.EventRegister, events[len(events)-1].Kind)

	st, err := models.NewState().ApplyAll(events...)
	require.NoError(t, err)
	assert.Equal(t, sub, st.Submission())
}

func TestReplayWithoutAgreementIsRejected(t *testing.T) {
	events := Replay(models.Submission{Mode: models.ModeTaxpayer, Email: "a@b.example"})

	_, err := models.NewState().ApplyAll(events...)
	assert.ErrorIs(t, err, models.ErrRegisterDisabled)
}
