package checkpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_Validate(t *testing.T) {
	valid := Snapshot{ID: "s", GraphID: "g", RunID: "r"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		mut  func(*Snapshot)
		want error
	}{
		{"missing id", func(s *Snapshot) { s.ID = "" }, ErrInvalidSnapshotID},
		{"missing graph", func(s *Snapshot) { s.GraphID = "" }, ErrInvalidGraphID},
		{"missing run", func(s *Snapshot) { s.RunID = "" }, ErrInvalidRunID},
		{"negative step", func(s *Snapshot) { s.Step = -1 }, ErrInvalidStep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mut(&s)
			assert.ErrorIs(t, s.Validate(), tt.want)
		})
	}
}

func TestSnapshot_Clone(t *testing.T) {
	s := &Snapshot{ID: "s", State: State{Variables: map[string]interface{}{"X": 1.0}, Wallets: map[string]string{"w": "addr"}}}
	cp := s.Clone()
	cp.State.Variables["X"] = 2.0
	cp.State.Wallets["w"] = "other"
	assert.Equal(t, 1.0, s.State.Variables["X"])
	assert.Equal(t, "addr", s.State.Wallets["w"])
}

func TestFilter(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)

	assert.ErrorIs(t, (&Filter{Limit: -1}).Validate(), ErrInvalidLimit)
	assert.ErrorIs(t, (&Filter{Offset: -1}).Validate(), ErrInvalidOffset)
	assert.ErrorIs(t, (&Filter{Since: &later, Before: &now}).Validate(), ErrInvalidTimeRange)

	s := &Snapshot{GraphID: "g", RunID: "r", Timestamp: now}
	assert.True(t, (&Filter{GraphID: "g"}).Matches(s))
	assert.False(t, (&Filter{RunID: "other"}).Matches(s))
	assert.False(t, (&Filter{Since: &later}).Matches(s))
	assert.True(t, (&Filter{Before: &later}).Matches(s))
}
