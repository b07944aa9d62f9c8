package lifecycle

import (
	"testing"

	"vitrina/internal/domain"
	"vitrina/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		t       Transition
		from    models.Status
		want    models.Status
		wantErr error
	}{
		{"confirm pending", Confirm, models.StatusPending, models.StatusConfirmed, nil},
		{"re-confirm", Confirm, models.StatusConfirmed, models.StatusConfirmed, nil},
		{"confirm cancelled", Confirm, models.StatusCancelled, models.StatusCancelled, domain.ErrInvalidState},
		{"confirm rejected", Confirm, models.StatusRejected, models.StatusRejected, domain.ErrInvalidState},

		{"reject pending", Reject, models.StatusPending, models.StatusRejected, nil},
		{"reject confirmed", Reject, models.StatusConfirmed, models.StatusRejected, nil},
		{"reject rejected", Reject, models.StatusRejected, models.StatusRejected, domain.ErrAlreadyRejected},
		{"reject cancelled", Reject, models.StatusCancelled, models.StatusCancelled, domain.ErrInvalidState},

		{"cancel pending", Cancel, models.StatusPending, models.StatusCancelled, nil},
		{"cancel confirmed", Cancel, models.StatusConfirmed, models.StatusCancelled, nil},
		{"cancel rejected", Cancel, models.StatusRejected, models.StatusRejected, domain.ErrInvalidState},
		{"cancel cancelled", Cancel, models.StatusCancelled, models.StatusCancelled, domain.ErrAlreadyCancelled},

		{"update pending", Update, models.StatusPending, models.StatusPending, nil},
		{"update confirmed", Update, models.StatusConfirmed, models.StatusConfirmed, domain.ErrCannotModifyConfirmed},
		{"update rejected", Update, models.StatusRejected, models.StatusRejected, domain.ErrCannotModifyRejected},
		{"update cancelled", Update, models.StatusCancelled, models.StatusCancelled, domain.ErrCannotModifyCancelled},

		{"purge rejected", Purge, models.StatusRejected, models.StatusRejected, nil},
		{"purge cancelled", Purge, models.StatusCancelled, models.StatusCancelled, nil},
		{"purge pending", Purge, models.StatusPending, models.StatusPending, domain.ErrInvalidState},
		{"purge confirmed", Purge, models.StatusConfirmed, models.StatusConfirmed, domain.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.t, tt.from)
			assert.Equal(t, tt.want, got)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, domain.ErrInvalidState)
		})
	}
}

func TestGuardRejectsUnknownInput(t *testing.T) {
	assert.ErrorIs(t, Guard(Confirm, models.Status("completed")), domain.ErrInvalidState)
	assert.ErrorIs(t, Guard(Transition("archive"), models.StatusPending), domain.ErrInvalidState)
}

func TestAllowed(t *testing.T) {
	assert.Equal(t, []Transition{Confirm, Reject, Cancel, Update}, Allowed(models.StatusPending))
	assert.Equal(t, []Transition{Confirm, Reject, Cancel}, Allowed(models.StatusConfirmed))
	assert.Equal(t, []Transition{Purge}, Allowed(models.StatusRejected))
	assert.Equal(t, []Transition{Purge}, Allowed(models.StatusCancelled))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(models.StatusPending))
	assert.False(t, IsTerminal(models.StatusConfirmed))
	assert.True(t, IsTerminal(models.StatusRejected))
	assert.True(t, IsTerminal(models.StatusCancelled))
}
