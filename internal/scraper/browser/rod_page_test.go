package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingInput struct {
	selectErr error
	calls     []string
}

func (r *recordingInput) SelectAllText() error {
	r.calls = append(r.calls, "select")
	return r.selectErr
}

func (r *recordingInput) Input(text string) error {
	r.calls = append(r.calls, "input:"+text)
	return nil
}

func TestFill(t *testing.T) {
	errDetached := errors.New("element detached")

	tests := []struct {
		name      string
		selectErr error
		wantErr   error
		wantCalls []string
	}{
		{
			name:      "selects before typing",
			wantCalls: []string{"select", "input:AbC12"},
		},
		{
			name:      "select failure stops the fill",
			selectErr: errDetached,
			wantErr:   errDetached,
			wantCalls: []string{"select"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := &recordingInput{selectErr: tt.selectErr}

			err := fill(el, "AbC12")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, el.calls)
		})
	}
}
