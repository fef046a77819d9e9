package risk

import "testing"

type fakeView struct {
	count    int
	notional float64
}

func (v fakeView) OpenCount() int         { return v.count }
func (v fakeView) TotalNotional() float64 { return v.notional }

func TestAdmissionController_CanOpen(t *testing.T) {
	ctrl := NewAdmissionController(AdmissionConfig{
		MaxPositions:     2,
		MaxTotalNotional: 200,
	})

	tests := []struct {
		name string
		view fakeView
		want bool
	}{
		{"empty ledger", fakeView{0, 0}, true},
		{"below both caps", fakeView{1, 100}, true},
		{"at position cap", fakeView{2, 100}, false},
		{"over position cap", fakeView{3, 100}, false},
		{"at notional cap", fakeView{1, 200}, false},
		{"over notional cap", fakeView{1, 250}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ctrl.CanOpen(tt.view)
			if got != tt.want {
				t.Errorf("CanOpen() = %v (%s), want %v", got, reason, tt.want)
			}
			if !got && reason == "" {
				t.Error("denial must carry a reason")
			}
		})
	}
}

func TestAdmissionController_CanAdd(t *testing.T) {
	ctrl := NewAdmissionController(AdmissionConfig{
		MaxPositions:      3,
		MaxTotalNotional:  300,
		MinSpreadIncrease: 0.20,
		MinTotalSpread:    0.60,
	})
	view := fakeView{count: 1, notional: 100}

	tests := []struct {
		name     string
		current  float64
		bestSeen float64
		view     fakeView
		want     bool
	}{
		{"spread widened enough", 0.75, 0.50, view, true},
		{"increase too small", 0.65, 0.50, view, false},
		{"total spread too small", 0.55, 0.30, view, false},
		{"caps still apply", 0.90, 0.50, fakeView{count: 3, notional: 100}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ctrl.CanAdd(tt.current, tt.bestSeen, tt.view)
			if got != tt.want {
				t.Errorf("CanAdd(%v, %v) = %v (%s), want %v", tt.current, tt.bestSeen, got, reason, tt.want)
			}
		})
	}
}
